package gammaimg

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Run loads the configuration at cfgPath, backprojects every event onto the
// voxel grid (and the sky binning when enabled) and writes the outputs
// selected by the package flags.
func Run(ctx context.Context, cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	grid, err := cfg.Grid.Build()
	if err != nil {
		return err
	}
	resp, err := cfg.Response.Build()
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	events, err := cfg.Events.Build()
	if err != nil {
		return err
	}
	bp, err := NewBackprojector(grid, resp, opts)
	if err != nil {
		return err
	}

	im := NewImage(grid)
	start := time.Now()
	sum, err := BackprojectAll(ctx, bp, events, im.Buf, cfg.Workers)
	logSummary("image", sum, time.Since(start))
	if err != nil {
		return err
	}
	Logger().Info("image", "total", im.Total(), "max", im.Max())

	if RAW {
		if err := im.SaveRaw(cfg.Output.Raw); err != nil {
			return err
		}
	}
	if PNG {
		if err := SavePNGSequence16(im, cfg.Output.PNGPrefix, cfg.Output.Gamma); err != nil {
			return err
		}
		DebugLog("Saved PNG sequence with prefix: %s", cfg.Output.PNGPrefix)
	}
	if GIF {
		if err := SaveAnimatedGIF(im, cfg.Output.GIF, cfg.Output.GIFDelay, cfg.Output.Gamma); err != nil {
			return err
		}
		DebugLog("Saved animated GIF: %s", cfg.Output.GIF)
	}

	if cfg.Sky.Enabled {
		return runSky(ctx, cfg, resp, events)
	}
	return nil
}

func runSky(ctx context.Context, cfg *Config, resp Response, events []Event) error {
	binner, err := CachedFISBEL(cfg.Sky.Bins, deg2rad(cfg.Sky.ShiftDeg))
	if err != nil {
		return err
	}
	sky, err := NewSkyBackprojector(binner, resp)
	if err != nil {
		return err
	}
	m, err := NewSkyMap(binner)
	if err != nil {
		return err
	}
	start := time.Now()
	sum, err := BackprojectAll(ctx, sky, events, m.Content, cfg.Workers)
	logSummary("sky", sum, time.Since(start))
	if err != nil {
		return err
	}

	if cfg.Sky.FISBELOut != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Sky.FISBELOut), 0o755); err != nil {
			return err
		}
		f, err := os.Create(cfg.Sky.FISBELOut)
		if err != nil {
			return err
		}
		if err := binner.WriteText(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if cfg.Sky.MapOut != "" {
		if err := m.Save(cfg.Sky.MapOut); err != nil {
			return err
		}
	}
	if PNG {
		if err := m.SavePNG(cfg.Sky.PNGOut, cfg.Sky.Width, cfg.Sky.Height, cfg.Output.Gamma); err != nil {
			return err
		}
		DebugLog("Saved sky map PNG: %s", cfg.Sky.PNGOut)
	}
	return nil
}

func logSummary(what string, s Summary, elapsed time.Duration) {
	Logger().Info("backprojection done",
		"target", what,
		"events", s.Events,
		"accepted", s.Accepted,
		"nan", s.NaN,
		"empty", s.Empty,
		"invalid", s.Invalid,
		"cancelled", s.Cancelled,
		"meanMax", s.MeanMaximum,
		"stdMax", s.StdMaximum,
		"time", elapsed,
	)
}
