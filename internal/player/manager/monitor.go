package manager

import (
	"time"

	"go.uber.org/zap"

	"github.com/playadev/playa/internal/player/ipc"
	"github.com/playadev/playa/pkg/playa"
)

// maxConsecutiveErrors is how many failed liveness probes in a row are
// treated as process exit.
const maxConsecutiveErrors = 3

// monitor polls one instance's control client and translates state into
// subscriber events. It exits on the first terminal condition; the
// sticky closed flag it latches keeps the client from reconnecting to a
// dead player afterwards.
func (m *Manager) monitor(id playa.InstanceID, client *ipc.Client, interval time.Duration, done chan struct{}) {
	defer close(done)
	log := m.log.With(zap.Stringer("instance", id))

	m.publish(playa.Event{Kind: playa.EventStarted, ID: id, TS: time.Now().UnixMilli()})

	lastPosition := -1.0
	lastPaused := false
	lastStatus := ""
	consecutive := 0

	defer func() {
		// Whatever ended the loop, the player is done from our point
		// of view.
		client.MarkIntentionallyClosed()
		log.Debug("playback monitoring completed")
	}()

	for {
		time.Sleep(interval)

		if client.IsIntentionallyClosed() {
			log.Debug("client intentionally closed, stopping monitor")
			m.publishClosed(id)
			return
		}

		// A transition into idle status usually means the user closed
		// the file through the player's own controls.
		if status, err := client.PlaybackStatus(); err == nil && status != "" {
			if status != lastStatus {
				log.Debug("playback status changed",
					zap.String("from", lastStatus), zap.String("to", status))
				if status == "idle" {
					client.MarkIntentionallyClosed()
					m.publishClosed(id)
					return
				}
				lastStatus = status
			}
		}

		position, posErr := client.GetPropertyFloat(playa.PropTimePos)
		duration, durErr := client.GetPropertyFloat(playa.PropDuration)
		paused, pauseErr := client.GetPropertyBool(playa.PropPause)
		eof, _ := client.GetPropertyBool(playa.PropEOFReached)
		idle, _ := client.GetPropertyBool(playa.PropIdleActive)

		// Liveness. When nothing was readable this tick, ask the client
		// for a verdict; repeated failures mean the process is gone.
		if posErr != nil && durErr != nil && pauseErr != nil {
			if !client.IsRunning() {
				consecutive++
				log.Debug("liveness probe failed", zap.Int("consecutive", consecutive))
				if client.IsIntentionallyClosed() || consecutive >= maxConsecutiveErrors {
					client.MarkIntentionallyClosed()
					m.publishClosed(id)
					return
				}
				continue
			}
		}
		consecutive = 0

		if pauseErr == nil && paused != lastPaused {
			kind := playa.EventResumed
			if paused {
				kind = playa.EventPaused
			}
			m.publish(playa.Event{Kind: kind, ID: id, TS: time.Now().UnixMilli()})
			lastPaused = paused
		}

		if posErr == nil && durErr == nil && position != lastPosition {
			m.publish(playa.Event{
				Kind:     playa.EventProgress,
				ID:       id,
				Position: position,
				Duration: duration,
				Percent:  percentOf(position, duration),
				TS:       time.Now().UnixMilli(),
			})
			lastPosition = position
		}

		if eof {
			log.Debug("end of file reached")
			client.MarkIntentionallyClosed()
			m.publish(playa.Event{Kind: playa.EventEnded, ID: id, TS: time.Now().UnixMilli()})
			return
		}

		if idle {
			log.Debug("player went idle")
			client.MarkIntentionallyClosed()
			m.publishClosed(id)
			return
		}
	}
}

func (m *Manager) publishClosed(id playa.InstanceID) {
	m.publish(playa.Event{Kind: playa.EventClosed, ID: id, TS: time.Now().UnixMilli()})
}
