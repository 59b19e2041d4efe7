// Package generator owns the logo submission flow: cooldown gating, optional
// pre-translation, prompt construction, the upstream image call, and the
// per-session state the page renders from.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"finitefield.org/logo-web/internal/inference"
	"finitefield.org/logo-web/internal/logo"
	"finitefield.org/logo-web/internal/results"
	"finitefield.org/logo-web/internal/translate"
)

const (
	// DefaultCooldown is how long submissions stay blocked after the upstream rate-limits us.
	DefaultCooldown = 60 * time.Second
	defaultIdleTTL  = 2 * time.Hour
)

// ErrBusy is returned when the session already has a submission in flight.
var ErrBusy = errors.New("generator: submission already in progress")

// CooldownError is returned while a cooldown is active. No upstream call is made.
type CooldownError struct {
	Remaining int
	Until     time.Time
}

// Error implements the error interface.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("generator: cooling down, %ds remaining", e.Remaining)
}

// Outcome reports what a submission that passed the gates did.
type Outcome struct {
	State       State
	ResultID    string
	Prompt      string
	CompanyName string
	Translated  bool
	RateLimited bool
	Err         error
}

// Failed reports whether the submission ended without a result.
func (o Outcome) Failed() bool { return o.Err != nil }

// Config wires a Controller.
type Config struct {
	Catalog    *logo.Catalog
	Images     inference.Generator
	Translator translate.Translator
	Results    *results.Store
	Logger     *zap.Logger
	Clock      func() time.Time
	Cooldown   time.Duration
	IdleTTL    time.Duration
}

// Controller runs submissions against per-session state.
type Controller struct {
	catalog    *logo.Catalog
	images     inference.Generator
	translator translate.Translator
	results    *results.Store
	logger     *zap.Logger
	clock      func() time.Time
	cooldown   time.Duration
	states     *StateStore
}

// New constructs a Controller. Images is required; Translator is optional.
func New(cfg Config) *Controller {
	c := &Controller{
		catalog:    cfg.Catalog,
		images:     cfg.Images,
		translator: cfg.Translator,
		results:    cfg.Results,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		cooldown:   cfg.Cooldown,
	}
	if c.catalog == nil {
		c.catalog = logo.DefaultCatalog()
	}
	if c.results == nil {
		c.results = results.NewStore()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.cooldown <= 0 {
		c.cooldown = DefaultCooldown
	}
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = defaultIdleTTL
	}
	c.states = NewStateStore(idle)
	return c
}

// Catalog returns the option catalog used for prompts.
func (c *Controller) Catalog() *logo.Catalog { return c.catalog }

// Results returns the image store backing result handles.
func (c *Controller) Results() *results.Store { return c.results }

// Now returns the controller clock reading.
func (c *Controller) Now() time.Time { return c.clock() }

// Snapshot returns a copy of the session state. Result handles the store has
// already evicted or expired are dropped, so the page never points at a missing image.
func (c *Controller) Snapshot(sessionID string) State {
	st, ok := c.states.get(sessionID)
	if !ok || c.allLive(st.Results) {
		return st
	}
	return c.states.update(sessionID, c.clock(), func(s *State) {
		live := s.Results[:0]
		for _, id := range s.Results {
			if _, err := c.results.Get(id); err == nil {
				live = append(live, id)
			}
		}
		s.Results = live
		if len(live) == 0 && !s.Loading {
			s.Prompt = ""
		}
	})
}

func (c *Controller) allLive(ids []string) bool {
	for _, id := range ids {
		if _, err := c.results.Get(id); err != nil {
			return false
		}
	}
	return true
}

// SetCustomColor edits one custom color slot. Edits are allowed while a submission is in flight.
func (c *Controller) SetCustomColor(sessionID string, index int, hex string) (State, error) {
	var err error
	st := c.states.update(sessionID, c.clock(), func(s *State) {
		err = s.Custom.Set(index, hex)
	})
	return st, err
}

// Reset clears the session result and releases its image.
func (c *Controller) Reset(sessionID string) State {
	var prev []string
	st := c.states.update(sessionID, c.clock(), func(s *State) {
		if s.Loading {
			return
		}
		prev, s.Results = s.Results, nil
		s.Prompt = ""
	})
	c.results.Revoke(prev...)
	return st
}

// Forget drops the session state and releases its image.
func (c *Controller) Forget(sessionID string) {
	if st, ok := c.states.delete(sessionID); ok {
		c.results.Revoke(st.Results...)
	}
}

// Submit runs one generation for values, which must already be validated.
// It returns *CooldownError or ErrBusy when the gates reject the attempt.
// Upstream failures are reported in Outcome.Err, not as the error result.
func (c *Controller) Submit(ctx context.Context, sessionID string, values logo.FormValues) (out Outcome, err error) {
	now := c.clock()
	var (
		gateErr error
		prev    []string
		custom  logo.CustomColors
	)
	c.states.update(sessionID, now, func(s *State) {
		if s.Cooling(now) {
			gateErr = &CooldownError{Remaining: s.RemainingSeconds(now), Until: *s.CooldownEnd}
			return
		}
		if s.Loading {
			gateErr = ErrBusy
			return
		}
		prev, s.Results = s.Results, nil
		s.Loading = true
		s.Last = values
		s.Prompt = ""
		custom = s.Custom
	})
	if gateErr != nil {
		return Outcome{State: c.Snapshot(sessionID)}, gateErr
	}
	c.results.Revoke(prev...)

	out = Outcome{CompanyName: values.CompanyName}
	defer func() {
		out.State = c.states.update(sessionID, c.clock(), func(s *State) {
			s.Loading = false
		})
	}()

	log := c.logger.With(zap.String("session", shortID(sessionID)))

	if c.translator != nil && translate.ContainsVietnamese(values.CompanyName) {
		translated, terr := c.translator.Translate(ctx, values.CompanyName)
		if terr != nil {
			out.Err = fmt.Errorf("translate company name: %w", terr)
			log.Warn("logo generation failed", zap.Error(out.Err))
			return out, nil
		}
		log.Debug("company name translated", zap.String("from", values.CompanyName), zap.String("to", translated))
		values.CompanyName = translated
		out.CompanyName = translated
		out.Translated = true
	}

	prompt := logo.BuildPrompt(values, c.catalog, custom)
	out.Prompt = prompt
	c.states.update(sessionID, c.clock(), func(s *State) { s.Prompt = prompt })

	img, gerr := c.images.Generate(ctx, prompt)
	if gerr != nil {
		out.Err = gerr
		if inference.IsRateLimited(gerr) {
			end := c.clock().Add(c.cooldown)
			out.RateLimited = true
			c.states.update(sessionID, c.clock(), func(s *State) { s.CooldownEnd = &end })
			log.Warn("upstream rate limited, cooling down", zap.Time("until", end), zap.Error(gerr))
			return out, nil
		}
		log.Error("logo generation failed", zap.Error(gerr))
		return out, nil
	}

	entry := c.results.Put(img.Data, img.ContentType)
	out.ResultID = entry.ID
	c.states.update(sessionID, c.clock(), func(s *State) { s.Results = []string{entry.ID} })
	log.Info("logo generated",
		zap.String("result", entry.ID),
		zap.Int("bytes", len(img.Data)),
		zap.Bool("translated", out.Translated),
	)
	return out, nil
}

// Run expires idle sessions and releases their images every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.expireIdle()
		}
	}
}

func (c *Controller) expireIdle() int {
	expired := c.states.expire(c.clock())
	for _, st := range expired {
		c.results.Revoke(st.Results...)
	}
	return len(expired)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
