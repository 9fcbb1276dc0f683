package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/craftlands/votegate/internal/core/domain"
	"github.com/craftlands/votegate/internal/core/ports"
)

// PollSupervisor owns one cancellable background task per polled
// (tenant, site). It reconciles the running task set against the site
// registry on a fixed period and on demand, instead of mutating live
// timers in place.
type PollSupervisor struct {
	sites      ports.SiteRepository
	challenges ports.ChallengeRepository
	otp        *OTPPoller
	check      *CheckPoller

	pollInterval      time.Duration
	reconcileInterval time.Duration

	mu      sync.Mutex
	tasks   map[string]context.CancelFunc
	wg      sync.WaitGroup
	kick    chan struct{}
	started bool
	stop    context.CancelFunc
}

// SupervisorOption configures a PollSupervisor.
type SupervisorOption func(*PollSupervisor)

// WithPollInterval overrides the per-site poll period.
func WithPollInterval(d time.Duration) SupervisorOption {
	return func(s *PollSupervisor) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithReconcileInterval overrides the registry reconciliation period.
func WithReconcileInterval(d time.Duration) SupervisorOption {
	return func(s *PollSupervisor) {
		if d > 0 {
			s.reconcileInterval = d
		}
	}
}

func NewPollSupervisor(sites ports.SiteRepository, challenges ports.ChallengeRepository, otp *OTPPoller, check *CheckPoller, opts ...SupervisorOption) *PollSupervisor {
	s := &PollSupervisor{
		sites:             sites,
		challenges:        challenges,
		otp:               otp,
		check:             check,
		pollInterval:      2 * time.Minute,
		reconcileInterval: time.Minute,
		tasks:             make(map[string]context.CancelFunc),
		kick:              make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the reconciliation loop and the expired-session janitor.
func (s *PollSupervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.stop = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Reconcile(ctx)
		ticker := time.NewTicker(s.reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Reconcile(ctx)
			case <-s.kick:
				s.Reconcile(ctx)
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.challenges.DeleteExpired(ctx, time.Now()); err != nil {
					log.Printf("challenge janitor: %v", err)
				} else if n > 0 {
					log.Printf("challenge janitor: removed %d expired sessions", n)
				}
			}
		}
	}()
}

// Stop cancels every task and waits for them to drain.
func (s *PollSupervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	stop := s.stop
	for key, cancel := range s.tasks {
		cancel()
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	stop()
	s.wg.Wait()
}

// Kick requests an immediate reconciliation, e.g. after an admin edits
// the site registry.
func (s *PollSupervisor) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Reconcile diffs the desired task set, derived from enabled polled
// sites, against the running one: stale tasks are cancelled, missing
// ones started.
func (s *PollSupervisor) Reconcile(ctx context.Context) {
	enabled, err := s.sites.ListEnabled(ctx)
	if err != nil {
		log.Printf("poll supervisor: listing sites: %v", err)
		return
	}

	desired := make(map[string]*domain.VoteSite)
	for _, site := range enabled {
		if site.Strategy == domain.StrategyOTPPoll || site.Strategy == domain.StrategyCheckPoll {
			desired[site.TenantID+"|"+site.Slug] = site
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}

	for key, cancel := range s.tasks {
		if _, ok := desired[key]; !ok {
			cancel()
			delete(s.tasks, key)
			log.Printf("poll supervisor: stopped task %s", key)
		}
	}

	for key, site := range desired {
		if _, ok := s.tasks[key]; ok {
			continue
		}
		taskCtx, cancel := context.WithCancel(ctx)
		s.tasks[key] = cancel
		s.wg.Add(1)
		go s.runTask(taskCtx, site)
		log.Printf("poll supervisor: started %s task %s", site.Strategy, key)
	}
}

// TaskCount reports the number of running poll tasks.
func (s *PollSupervisor) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *PollSupervisor) runTask(ctx context.Context, site *domain.VoteSite) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The registry is re-read every tick so admin edits (rotated
			// keys, new endpoints, changed rewards) apply to a running
			// task without a restart.
			current, err := s.sites.GetBySlug(ctx, site.TenantID, site.Slug)
			if err != nil {
				log.Printf("poll task %s/%s: reading site: %v", site.TenantID, site.Slug, err)
				continue
			}
			if !current.Enabled {
				continue
			}
			switch current.Strategy {
			case domain.StrategyOTPPoll:
				s.otp.PollSite(ctx, current)
			case domain.StrategyCheckPoll:
				s.check.PollSite(ctx, current)
			}
		}
	}
}
