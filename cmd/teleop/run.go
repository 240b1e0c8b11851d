package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/teleop/internal/config"
	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/engine"
	"github.com/san-kum/teleop/internal/input"
	"github.com/san-kum/teleop/internal/log"
	"github.com/san-kum/teleop/internal/storage"
	"github.com/san-kum/teleop/internal/telemetry"
	"github.com/san-kum/teleop/internal/teleop"
	"github.com/san-kum/teleop/internal/tui"
)

// runTeleop wires the world, input and outputs together and runs the loop
// until quit, disconnect or interrupt. Only a failed start or a loop
// error is reported as an error.
func runTeleop(cmd *cobra.Command, opts *options) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	keymap, err := control.DefaultKeymap().With(cfg.Keymap)
	if err != nil {
		return fmt.Errorf("keymap: %w", err)
	}

	logger, err := newLogger(cfg, opts.headless)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog := engine.DefaultCatalog()
	if cfg.World.Catalog != "" {
		extra, err := engine.LoadCatalog(cfg.World.Catalog)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		catalog = catalog.Merge(extra)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		source   input.Source
		keyboard *input.Keyboard
	)
	if opts.script != "" {
		script, err := input.LoadScript(opts.script)
		if err != nil {
			return fmt.Errorf("load script: %w", err)
		}
		source = script
	} else {
		keyboard = input.NewKeyboard(cfg.Loop.RepeatWindow)
		source = keyboard
	}

	loopOpts := []teleop.Option{teleop.WithLogger(logger)}

	var recorder *storage.Recorder
	if opts.record {
		recorder = storage.NewRecorder(storage.New(opts.dataDir), storage.SessionMetadata{
			Robot:      cfg.Robot.Asset,
			TimeStep:   cfg.World.TimeStep,
			Integrator: cfg.World.Integrator,
		})
		loopOpts = append(loopOpts, teleop.WithObserver(recorder))
	}

	telemetryCtx, stopTelemetry := context.WithCancel(ctx)
	defer stopTelemetry()
	if cfg.Telemetry.Addr != "" {
		if keyboard == nil {
			return errors.New("telemetry needs live keyboard input; drop --script")
		}
		srv := telemetry.NewServer(keyboard, keymap, logger)
		loopOpts = append(loopOpts, teleop.WithSink(srv))
		go func() {
			if err := srv.ListenAndServe(telemetryCtx, cfg.Telemetry.Addr); err != nil {
				logger.Warn("telemetry stopped", zap.Error(err))
			}
		}()
	}

	mode := engine.ModeGUI
	if opts.headless {
		mode = engine.ModeDirect
	}

	var (
		program *tea.Program
		bridge  *tui.Bridge
	)
	if mode == engine.ModeGUI {
		if keyboard == nil {
			keyboard = input.NewKeyboard(cfg.Loop.RepeatWindow)
		}
		program = tea.NewProgram(tui.New(keyboard, keymap, cfg.Robot.Asset))
		bridge = tui.NewBridge(program, tui.DefaultFrame)
		loopOpts = append(loopOpts, teleop.WithObserver(bridge), teleop.WithSink(bridge))
	} else {
		loopOpts = append(loopOpts, teleop.WithSink(teleop.NewConsole(cmd.OutOrStdout())))
	}

	loop, err := teleop.Setup(ctx, engine.NewKinematic(catalog), cfg,
		engine.Options{Mode: mode, Keyboard: source}, loopOpts...)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), keymap.Instructions())

	var (
		reason teleop.ExitReason
		runErr error
	)
	if program != nil {
		reason, runErr = runWithUI(ctx, loop, program, bridge, keyboard, opts.script != "")
	} else {
		reason, runErr = loop.Run(ctx)
	}
	stopTelemetry()

	if recorder != nil {
		meta, err := recorder.Save(reason)
		if err != nil {
			logger.Error("save session", zap.Error(err))
		} else {
			logger.Info("session recorded", zap.String("id", meta.ID), zap.Int("ticks", meta.Ticks))
			fmt.Fprintf(cmd.OutOrStdout(), "recorded session %s\n", meta.ID)
		}
	}
	return runErr
}

type loopResult struct {
	reason teleop.ExitReason
	err    error
}

// runWithUI runs the terminal UI on the calling goroutine and the loop
// beside it. Whichever stops first stops the other: the loop through
// DoneMsg, the UI by closing the keyboard. A scripted loop does not read
// the UI keyboard and is canceled instead.
func runWithUI(ctx context.Context, loop *teleop.Loop, program *tea.Program, bridge *tui.Bridge, keyboard *input.Keyboard, scripted bool) (teleop.ExitReason, error) {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan loopResult, 1)
	go func() {
		reason, err := loop.Run(loopCtx)
		bridge.Done(reason, err)
		done <- loopResult{reason, err}
	}()

	_, uiErr := program.Run()
	keyboard.Close()
	if scripted {
		cancel()
	}
	res := <-done
	if res.err == nil && uiErr != nil {
		return res.reason, fmt.Errorf("terminal ui: %w", uiErr)
	}
	return res.reason, res.err
}

// newLogger keeps logs off the terminal while the UI owns it, unless a
// log file is configured.
func newLogger(cfg *config.Config, headless bool) (*zap.Logger, error) {
	output := cfg.Log.File
	if output == "" {
		output = "stderr"
		if !headless {
			output = os.DevNull
		}
	}
	return log.New(cfg.Log.Level, output)
}
