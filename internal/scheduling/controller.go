// Package scheduling drives the appointment calendar screen: month
// navigation, day selection and the per-status actions offered on each
// appointment of the selected day.
package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// DefaultRefreshInterval is how often "now" is re-read for past/future checks
const DefaultRefreshInterval = 30 * time.Second

// Subscriber delivers full appointment snapshots
type Subscriber interface {
	Subscribe(ctx context.Context, onChange func([]*entities.Appointment)) (unsubscribe func(), err error)
}

// Applier performs a status transition and its side effects
type Applier interface {
	Apply(ctx context.Context, apt *entities.Appointment, action entities.AppointmentAction) (entities.AppointmentStatus, error)
}

// Prompt describes the transition the operator is asked to confirm
type Prompt struct {
	Appointment *entities.Appointment      `json:"appointment"`
	Action      entities.AppointmentAction `json:"action"`
	From        entities.AppointmentStatus `json:"from"`
	To          entities.AppointmentStatus `json:"to"`
	Message     string                     `json:"message"`
}

// NewPrompt builds the confirmation question for moving apt to status to
func NewPrompt(apt *entities.Appointment, action entities.AppointmentAction, to entities.AppointmentStatus) Prompt {
	return Prompt{
		Appointment: apt,
		Action:      action,
		From:        apt.Status,
		To:          to,
		Message: fmt.Sprintf("%s o agendamento de %s em %s às %s?",
			action.Label(), apt.PatientName, apt.Date.Display(), apt.Time),
	}
}

// Confirmer asks the operator a blocking yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm is used when the confirmation already happened on the client
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, Prompt) (bool, error) { return true, nil })

// Outcome is the result of a dispatched action
type Outcome struct {
	Applied bool                       `json:"applied"`
	Status  entities.AppointmentStatus `json:"status"`
	// Partial is set when the status was written but the donor update was not
	Partial bool `json:"partial"`
}

// Options configure a Controller
type Options struct {
	RefreshInterval time.Duration
	// Month and Selected default to the current day
	Month    *calendar.Month
	Selected *calendar.Date
}

// Controller holds the scheduling screen state. Snapshot deliveries, clock
// ticks and operator calls may arrive from different goroutines; state is
// guarded by mu and render callbacks never overlap. A callback may call back
// into the controller; the resulting view is delivered after it returns.
type Controller struct {
	store   Subscriber
	applier Applier
	clock   calendar.Clock
	refresh time.Duration

	mu           sync.Mutex
	month        calendar.Month
	selected     calendar.Date
	now          time.Time
	appointments []*entities.Appointment
	loaded       bool
	onRender     func(View)
	rendering    bool
	dirty        bool

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewController creates a controller positioned on today
func NewController(store Subscriber, applier Applier, clock calendar.Clock, opts Options) *Controller {
	now := clock.Now()
	today := calendar.DateOf(now)

	c := &Controller{
		store:    store,
		applier:  applier,
		clock:    clock,
		refresh:  opts.RefreshInterval,
		month:    calendar.MonthOf(today),
		selected: today,
		now:      now,
	}
	if c.refresh <= 0 {
		c.refresh = DefaultRefreshInterval
	}
	if opts.Selected != nil {
		c.selected = *opts.Selected
		c.month = calendar.MonthOf(*opts.Selected)
	}
	if opts.Month != nil {
		c.month = *opts.Month
	}
	return c
}

// Start subscribes to the appointment snapshots and starts the clock refresh.
// Close releases both.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	unsubscribe, err := c.store.Subscribe(ctx, c.onSnapshot)
	if err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.cancel = cancel
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runClock(ctx)
	return nil
}

// Close stops the subscription and the clock and waits for the clock loop
func (c *Controller) Close() {
	c.mu.Lock()
	cancel, unsubscribe := c.cancel, c.unsubscribe
	c.cancel, c.unsubscribe = nil, nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Controller) runClock(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh()
		}
	}
}

// Refresh re-reads the clock and re-renders
func (c *Controller) Refresh() {
	c.mu.Lock()
	c.now = c.clock.Now()
	c.mu.Unlock()
	c.render()
}

func (c *Controller) onSnapshot(appointments []*entities.Appointment) {
	c.mu.Lock()
	c.appointments = appointments
	c.loaded = true
	c.mu.Unlock()
	c.render()
}

// OnRender registers fn to receive the view after every state change
func (c *Controller) OnRender(fn func(View)) {
	c.mu.Lock()
	c.onRender = fn
	c.mu.Unlock()
}

// ChangeMonth shifts the displayed month by delta; the selected day is kept
func (c *Controller) ChangeMonth(delta int) {
	c.mu.Lock()
	c.month = c.month.AddMonths(delta)
	c.mu.Unlock()
	c.render()
}

// SelectDay sets the selected day. Past days remain selectable.
func (c *Controller) SelectDay(day calendar.Date) {
	c.mu.Lock()
	c.selected = day
	c.mu.Unlock()
	c.render()
}

// View returns the current rendered state
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	view := BuildView(c.month, c.selected, c.now, c.appointments)
	view.Loaded = c.loaded
	return view
}

func (c *Controller) render() {
	c.mu.Lock()
	if c.rendering {
		// the active renderer delivers the newer state
		c.dirty = true
		c.mu.Unlock()
		return
	}
	c.rendering = true

	for {
		c.dirty = false
		fn := c.onRender
		view := c.viewLocked()
		c.mu.Unlock()

		if fn != nil {
			fn(view)
		}

		c.mu.Lock()
		if !c.dirty {
			break
		}
	}
	c.rendering = false
	c.mu.Unlock()
}

// Dispatch applies action to the appointment as it appears in the latest
// snapshot, after the operator confirms. A controller built without an
// applier is read only.
func (c *Controller) Dispatch(ctx context.Context, id string, action entities.AppointmentAction, confirmer Confirmer) (Outcome, error) {
	if c.applier == nil {
		return Outcome{}, apperrors.NewForbiddenError("schedule view is read only")
	}

	c.mu.Lock()
	apt := c.find(id)
	now := c.now
	c.mu.Unlock()

	if apt == nil {
		return Outcome{}, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return Dispatch(ctx, c.applier, apt, now, action, confirmer)
}

// Dispatch checks that action is offered for apt at now, asks confirmer and
// hands the transition to applier. A declined prompt writes nothing. A
// completion whose donor update failed returns the PARTIAL error together
// with an applied outcome.
func Dispatch(ctx context.Context, applier Applier, apt *entities.Appointment, now time.Time, action entities.AppointmentAction, confirmer Confirmer) (Outcome, error) {
	to, err := entities.Transition(apt.Status, action, apt.IsPast(now))
	if err != nil {
		return Outcome{Status: apt.Status}, err
	}

	ok, err := confirmer.Confirm(ctx, NewPrompt(apt, action, to))
	if err != nil {
		return Outcome{Status: apt.Status}, err
	}
	if !ok {
		return Outcome{Status: apt.Status}, nil
	}

	status, err := applier.Apply(ctx, apt, action)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrorTypePartial) {
			log.Warn().Err(err).Str("appointment_id", apt.ID).Msg("appointment completed, donor update pending")
			return Outcome{Applied: true, Status: status, Partial: true}, err
		}
		return Outcome{Status: apt.Status}, err
	}
	return Outcome{Applied: true, Status: status}, nil
}

func (c *Controller) find(id string) *entities.Appointment {
	for _, apt := range c.appointments {
		if apt.ID == id {
			cp := *apt
			return &cp
		}
	}
	return nil
}
