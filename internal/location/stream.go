package location

import (
	"sync"

	"github.com/kjstillabower/clima/internal/models"
)

// stream is the Subscription shared by the built-in providers. Producers send
// through publish; Cancel closes done, after which publish drops updates.
type stream struct {
	updates chan models.Coordinates
	done    chan struct{}
	once    sync.Once
	onStop  func()
}

func newStream(onStop func()) *stream {
	return &stream{
		updates: make(chan models.Coordinates),
		done:    make(chan struct{}),
		onStop:  onStop,
	}
}

func (s *stream) Updates() <-chan models.Coordinates { return s.updates }

func (s *stream) Cancel() {
	s.once.Do(func() {
		close(s.done)
		if s.onStop != nil {
			s.onStop()
		}
	})
}

// publish hands c to the subscriber. It returns false once the stream is cancelled.
func (s *stream) publish(c models.Coordinates) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.updates <- c:
		return true
	case <-s.done:
		return false
	}
}
