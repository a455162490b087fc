package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/cache"
	"github.com/workforce/tracker/pkg/config"
	"github.com/workforce/tracker/pkg/credentials"
	"github.com/workforce/tracker/pkg/display"
	"github.com/workforce/tracker/pkg/logger"
	"github.com/workforce/tracker/pkg/output"
	"github.com/workforce/tracker/pkg/tracker"
	"github.com/workforce/tracker/pkg/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// Watch keeps a live status line on screen until ctx is done, the process
// is interrupted, the user logs out in another terminal, or the server
// rejects the session
func (s *TrackerService) Watch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := openSession()
	if err != nil {
		return err
	}

	trk := sess.newTracker(s.clock)
	defer trk.Close()

	frames := newLatest()
	unsubscribe := trk.Subscribe(frames.put)
	defer unsubscribe()

	snap, ok, err := snapshotCache().Load(sess.creds.UserID, s.clock.Now(), cache.DefaultMaxAge)
	if err != nil {
		logger.Warn("Failed to read snapshot cache", "error", err)
	} else if ok {
		trk.Prime(snap)
	}

	scr := newScreen(output.Out)
	loggedOut := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return trk.Run(gctx)
	})
	g.Go(func() error {
		return scr.run(gctx, frames)
	})
	g.Go(func() error {
		err := credentials.Watch(gctx, func() {
			loggedOut = true
			cancel()
		})
		if err != nil {
			logger.Warn("Not watching for logout", "error", err)
		}
		return nil
	})
	if config.GetBool("ws.enabled") {
		ws := websocket.NewClient(websocket.FromSettings(sess.creds.UserID, sess.creds.AccessToken))
		ws.On(websocket.MessageTypeAttendanceUpdate, func(websocket.Message) {
			trk.Invalidate()
		})
		g.Go(func() error {
			if err := ws.Run(gctx); err != nil {
				logger.Warn("Live updates disabled", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	scr.finish()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if loggedOut {
		output.PrintWarning("Logged out in another session")
		return nil
	}
	sess.remember(trk.Snapshot())
	return nil
}

// latest holds the most recent event only. Publishers never block on a
// slow screen.
type latest struct {
	ch chan tracker.Event
}

func newLatest() *latest {
	return &latest{ch: make(chan tracker.Event, 1)}
}

func (l *latest) put(ev tracker.Event) {
	for {
		select {
		case l.ch <- ev:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

// screen draws frames. On a terminal it redraws one line in place;
// elsewhere it appends a line per change and skips ticks.
type screen struct {
	w      io.Writer
	live   bool
	asJSON bool
	last   string
}

func newScreen(w io.Writer) *screen {
	live := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		live = term.IsTerminal(int(f.Fd()))
	}
	asJSON := output.GetOutputFormat() == output.FormatJSON
	return &screen{w: w, live: live && !asJSON, asJSON: asJSON}
}

func (s *screen) run(ctx context.Context, frames *latest) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-frames.ch:
			s.draw(ev)
		}
	}
}

func (s *screen) draw(ev tracker.Event) {
	if !s.live && ev.Kind == tracker.EventTick {
		return
	}

	v := display.Render(ev.Snapshot)
	var line string
	if s.asJSON {
		data, err := json.Marshal(statusOutput{Snapshot: ev.Snapshot, View: v})
		if err != nil {
			logger.Debug("Failed to encode frame", "error", err)
			return
		}
		line = string(data)
	} else {
		line = display.Line(v)
	}

	if s.live {
		fmt.Fprint(s.w, "\r\033[2K"+line)
		s.last = line
		return
	}
	if line == s.last {
		return
	}
	s.last = line
	fmt.Fprintln(s.w, line)
}

// finish leaves the cursor on a fresh line
func (s *screen) finish() {
	if s.live && s.last != "" {
		fmt.Fprintln(s.w)
	}
}
