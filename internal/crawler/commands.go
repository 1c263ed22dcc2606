package crawler

import (
	"context"
	"errors"

	"github.com/nao1215/wsspider/internal/protocol"
)

// Hello returns the queue length and auto-start flag announced in
// client_ready.
func (s *Spider) Hello() (jobs int, autoStart bool) {
	return s.state.JobCount(), s.autoStartEnabled()
}

func (s *Spider) autoStartEnabled() bool {
	return s.autoStart && s.state.AutoStart()
}

// OnConnect starts the queue after a (re)connect when auto-start is on
// and jobs are pending.
func (s *Spider) OnConnect(ctx context.Context) {
	if !s.autoStartEnabled() || s.Running() || s.state.JobCount() == 0 {
		return
	}
	s.logger.Info("auto-starting spider", "jobs", s.state.JobCount())
	if err := s.StartQueue(ctx); err != nil {
		s.logger.Warn("auto-start failed", "error", err)
	}
}

// HandleCommand applies an inbound control command.
func (s *Spider) HandleCommand(ctx context.Context, cmd protocol.Command) {
	switch cmd.Cmd {
	case protocol.CmdAddJobs:
		added, total, err := s.state.AddJobs(ctx, cmd.Queries)
		if err != nil {
			s.logger.Warn("job queue not persisted", "error", err)
		}
		s.logger.Info("jobs added", "added", added, "total", total)
		s.sink.SendControl(protocol.NewJobsAdded(added, total))

		if s.autoStartEnabled() && !s.Running() && total > 0 {
			s.logger.Info("auto-starting spider")
			if err := s.StartQueue(ctx); err != nil {
				s.logger.Warn("auto-start failed", "error", err)
			}
		}

	case protocol.CmdClearJobs:
		if err := s.state.ClearJobs(ctx); err != nil {
			s.logger.Warn("job queue not persisted", "error", err)
		}
		s.logger.Info("job queue cleared")

	case protocol.CmdGetQueue:
		s.sink.SendControl(protocol.NewQueueStatus(s.state.Jobs(), s.Running()))

	case protocol.CmdStartSpider:
		switch err := s.StartQueue(ctx); {
		case err == nil:
			s.logger.Info("remote start command received")
		case errors.Is(err, ErrAlreadyRunning):
			s.logger.Warn("spider already running")
		default:
			s.logger.Warn("remote start ignored", "error", err)
		}

	case protocol.CmdStopSpider:
		if s.Running() {
			s.Stop()
			s.logger.Warn("stop command received")
		}

	default:
		s.logger.Debug("unknown command", "cmd", cmd.Cmd)
	}
}
