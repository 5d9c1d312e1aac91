package command

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/MrWong99/cadenza/internal/sched"
)

// BindScheduler registers the scheduler command surface on r:
//
//	vqueue_enqueue <priority> <mode>+ <atom>+  → id ≥ 1, or 0 on parse error
//	vqueue_stop <id>                           → cancels one molecule
//	vqueue_cancel <priority>                   → discards a whole lane
//
// Parse and validation failures never mutate the queue; the reason is
// logged and the enqueue reply is "0". Cancels of unknown ids or
// priorities are silent no-ops.
func BindScheduler(r *Router, s *sched.Scheduler) {
	r.Register("vqueue_enqueue", func(args string) string {
		id, err := s.Submit(args)
		if err != nil {
			slog.Warn("enqueue rejected", "command", args, "err", err)
			return "0"
		}
		return strconv.FormatUint(id, 10)
	})

	r.Register("vqueue_stop", func(args string) string {
		id, err := strconv.ParseUint(args, 10, 64)
		if err != nil {
			slog.Warn("vqueue_stop: bad id", "arg", args)
			return ""
		}
		s.Cancel(id)
		return ""
	})

	r.Register("vqueue_cancel", func(args string) string {
		p, err := strconv.Atoi(args)
		if err != nil {
			slog.Warn("vqueue_cancel: bad priority", "arg", args)
			return ""
		}
		s.CancelPriority(p)
		return ""
	})

	r.Register("vqueue_len", func(string) string {
		return fmt.Sprintf("%d", s.QueueLen())
	})
}
