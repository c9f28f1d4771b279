package dag

import (
	"go.uber.org/zap"

	"primedag/logger"
	"primedag/models"
)

// statusQueueSize bounds the number of in-flight status updates.
const statusQueueSize = 256

type statusUpdate struct {
	id         string
	status     models.NodeStatus
	confidence float64
}

// enqueueStatusUpdate hands a status change to the writer goroutine.
// The queue is bounded; when full, the update is dropped and logged
// rather than blocking the confidence pass.
func (g *Graph) enqueueStatusUpdate(u statusUpdate) {
	select {
	case g.updates <- u:
	default:
		logger.Logger.Warn("status update queue full, dropping update",
			zap.String("tx_id", u.id),
			zap.String("status", string(u.status)))
	}
}

// persistLoop is the single consumer of the status-update queue.
// Persistence failures are logged only; callers never see them.
func (g *Graph) persistLoop() {
	defer g.wg.Done()
	for {
		select {
		case u := <-g.updates:
			g.persistUpdate(u)
		case <-g.done:
			for {
				select {
				case u := <-g.updates:
					g.persistUpdate(u)
				default:
					return
				}
			}
		}
	}
}

func (g *Graph) persistUpdate(u statusUpdate) {
	if g.store == nil {
		return
	}
	if err := g.store.UpdateNodeStatus(u.id, u.status, u.confidence); err != nil {
		logger.Logger.Warn("failed to persist node status",
			zap.String("tx_id", u.id),
			zap.String("status", string(u.status)),
			zap.Error(err))
	}
}

// Close drains the status-update queue and stops the writer goroutine.
func (g *Graph) Close() {
	g.once.Do(func() {
		close(g.done)
	})
	g.wg.Wait()
}
