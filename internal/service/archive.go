package service

import (
	"context"
	"time"

	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

const archiveBuffer = 256

// ArchiveService mirrors session log entries into the persistent archive.
// Writes happen on a background goroutine and never feed back into the
// session; entries are dropped when the buffer is full.
type ArchiveService struct {
	archive repository.EventArchive
	entries chan models.EventLogEntry
	timeout time.Duration
	log     *logger.Logger
}

func NewArchiveService(archive repository.EventArchive, log *logger.Logger) *ArchiveService {
	if log == nil {
		log = logger.Nop()
	}
	return &ArchiveService{
		archive: archive,
		entries: make(chan models.EventLogEntry, archiveBuffer),
		timeout: 5 * time.Second,
		log:     log,
	}
}

// Start subscribes to session and writes entries until ctx is canceled.
// Entries the session logged before Start are archived first, oldest first.
// The returned channel closes once the writer has drained and exited.
func (s *ArchiveService) Start(ctx context.Context, session *Session) <-chan struct{} {
	done := make(chan struct{})
	if s.archive == nil {
		close(done)
		return done
	}
	backlog, cancel := session.subscribeEvents(func(u Update) {
		if u.Kind != UpdateEvent || u.Event == nil {
			return
		}
		s.enqueue(*u.Event)
	})
	for _, e := range backlog {
		s.enqueue(e)
	}
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case e := <-s.entries:
				s.write(e)
			case <-ctx.Done():
				s.drain()
				return
			}
		}
	}()
	return done
}

func (s *ArchiveService) enqueue(e models.EventLogEntry) {
	select {
	case s.entries <- e:
	default:
		s.log.Warnw("archive_queue_full", "event_id", e.ID)
	}
}

func (s *ArchiveService) drain() {
	for {
		select {
		case e := <-s.entries:
			s.write(e)
		default:
			return
		}
	}
}

func (s *ArchiveService) write(e models.EventLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.archive.Append(ctx, e); err != nil {
		s.log.Warnw("archive_append_failed", "event_id", e.ID, "err", err)
	}
}
