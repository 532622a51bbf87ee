package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/diarization/enginetest"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/presentation"
	"github.com/kbukum/diarlive/session"
)

// Script is a recorded engine conversation for one meeting. Each step is
// either an engine event addressed to the running session, an operator
// command, or a pause on the replay clock.
type Script struct {
	MeetingID string               `yaml:"meeting_id"`
	Options   *diarization.Options `yaml:"options"`
	Steps     []Step               `yaml:"steps"`
}

// Step holds exactly one of its fields.
type Step struct {
	Status   *diarization.StatusSignal   `yaml:"status"`
	Segment  *diarization.Segment        `yaml:"segment"`
	Change   *diarization.SpeakerChange  `yaml:"change"`
	Identify *diarization.Identification `yaml:"identify"`
	Health   *diarization.HealthSignal   `yaml:"health"`
	Progress *diarization.Progress       `yaml:"progress"`
	Rename   *renameStep                 `yaml:"rename"`
	Command  string                      `yaml:"command"`
	Wait     time.Duration               `yaml:"wait"`
}

type renameStep struct {
	Tag  string `yaml:"tag"`
	Name string `yaml:"name"`
}

// LoadScript decodes a YAML script.
func LoadScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if s.MeetingID == "" {
		return nil, fmt.Errorf("script: meeting_id is required")
	}
	return &s, nil
}

type replayClock struct{ t time.Time }

func (c *replayClock) now() time.Time { return c.t }

// Replay runs s through a controller backed by the scripted engine and
// returns the final snapshot. Every step is applied synchronously.
func Replay(ctx context.Context, s *Script, cfg session.Config, log *logger.Logger) (session.Snapshot, error) {
	engine := enginetest.New(len(s.Steps) + 1)
	clock := &replayClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	ctrl := session.New(engine, cfg,
		session.WithLogger(log),
		session.WithClock(clock.now),
		session.WithDispatcher(func(fn func()) { fn() }),
	)

	opts := diarization.DefaultOptions()
	if s.Options != nil {
		opts = *s.Options
	}
	if err := ctrl.Start(ctx, s.MeetingID, opts); err != nil {
		return session.Snapshot{}, err
	}
	ctrl.Drain(ctx)

	for i, step := range s.Steps {
		if err := applyStep(ctx, ctrl, engine, clock, step); err != nil {
			return ctrl.Snapshot(), fmt.Errorf("step %d: %w", i+1, err)
		}
		ctrl.Drain(ctx)
	}
	return ctrl.Snapshot(), nil
}

func applyStep(ctx context.Context, ctrl *session.Controller, engine *enginetest.Engine, clock *replayClock, step Step) error {
	cur := engine.Current()
	var ev *diarization.Event
	switch {
	case step.Status != nil:
		e := diarization.NewStatusEvent(cur.MeetingID, cur.SessionID, step.Status.Status, step.Status.Message)
		ev = &e
	case step.Segment != nil:
		e := diarization.NewSegmentEvent(cur.MeetingID, cur.SessionID, *step.Segment)
		ev = &e
	case step.Change != nil:
		e := diarization.NewSpeakerChangeEvent(cur.MeetingID, cur.SessionID, *step.Change)
		ev = &e
	case step.Identify != nil:
		e := diarization.NewIdentificationEvent(cur.MeetingID, cur.SessionID, *step.Identify)
		ev = &e
	case step.Health != nil:
		e := diarization.NewHealthEvent(cur.MeetingID, cur.SessionID, *step.Health)
		ev = &e
	case step.Progress != nil:
		e := diarization.NewProgressEvent(cur.MeetingID, cur.SessionID, step.Progress.ProcessedSeconds)
		ev = &e
	case step.Rename != nil:
		return ctrl.Rename(ctx, step.Rename.Tag, step.Rename.Name)
	case step.Command != "":
		return runCommand(ctx, ctrl, step.Command)
	case step.Wait > 0:
		clock.t = clock.t.Add(step.Wait)
		ctrl.Tick(ctx)
		return nil
	default:
		return fmt.Errorf("empty step")
	}
	ctrl.Process(ctx, *ev)
	return nil
}

func runCommand(ctx context.Context, ctrl *session.Controller, name string) error {
	switch name {
	case "pause":
		return ctrl.Pause(ctx)
	case "resume":
		return ctrl.Resume(ctx)
	case "stop":
		return ctrl.Stop(ctx)
	case "retry":
		return ctrl.Retry(ctx)
	case "skip":
		return ctrl.Skip(ctx)
	case "recovery":
		return ctrl.ScheduleRecovery(ctx, ctrl.Snapshot().MeetingID)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func newReplayCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "replay <script.yml>",
		Short: "Fold a recorded engine event script and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			script, err := LoadScript(f)
			if err != nil {
				return err
			}

			log := logger.Nop()
			if root.verbose {
				log = logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatPretty}, "diarlive", cmd.ErrOrStderr())
			}
			cfg := session.Config{}
			cfg.ApplyDefaults()

			snap, err := Replay(cmd.Context(), script, cfg, log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprint(out, presentation.RenderTerminal(presentation.Build(snap)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the final snapshot as JSON")
	return cmd
}
