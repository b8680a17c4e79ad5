package playback

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Update is a snapshot from the player, or the error that prevented one.
type Update struct {
	Track *Track // Current track (nil if stopped/no track)
	Err   error  // Error from the player client
}

// Monitor polls the player at regular intervals and feeds updates into a
// channel consumed on the application's dispatch loop.
type Monitor struct {
	client   Client
	interval time.Duration
	logger   zerolog.Logger
}

// NewMonitor creates a Monitor instance.
func NewMonitor(client Client, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		client:   client,
		interval: interval,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// Run starts the polling loop and sends updates to the provided channel.
// Blocks until context is cancelled.
func (m *Monitor) Run(ctx context.Context, updates chan<- Update) error {
	m.logger.Info().
		Dur("interval", m.interval).
		Msg("Starting playback monitor")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Poll immediately on start
	m.poll(ctx, updates)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Playback monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.poll(ctx, updates)
		}
	}
}

// poll queries the player and sends an update
func (m *Monitor) poll(ctx context.Context, updates chan<- Update) {
	track, err := m.client.GetCurrentTrack(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Error getting current track")
		select {
		case updates <- Update{Err: err}:
		case <-ctx.Done():
		}
		return
	}

	select {
	case updates <- Update{Track: track}:
		if track != nil {
			m.logger.Debug().
				Str("title", track.Title).
				Str("artist", track.Artist).
				Str("state", track.State.String()).
				Msg("Poll update")
		}
	case <-ctx.Done():
	}
}
