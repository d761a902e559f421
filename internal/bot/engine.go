package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lojasmm/wamenu/internal/menu"
	"github.com/lojasmm/wamenu/internal/whatsapp"
)

// Delays between a primary reply and the messages that follow it.
const (
	commandFollowUpDelay   = 1000 * time.Millisecond
	defaultListDelay       = 500 * time.Millisecond
	selectionFollowUpDelay = 1500 * time.Millisecond
	buttonsDelay           = 1000 * time.Millisecond
	submenuDelay           = 1500 * time.Millisecond
)

// Event names used in logs and metrics.
const (
	eventText        = "text"
	eventSelection   = "selection"
	eventButton      = "button"
	eventUnsupported = "unsupported"
)

var errNoSender = errors.New("no message sender configured")

// Resolver looks up configured replies.
type Resolver interface {
	Command(trigger string) (menu.Command, bool)
	List(id string) (menu.List, bool)
	Submenu(id string) (menu.List, bool)
	Selection(id string) (menu.Reply, bool)
}

// SenderSource returns the sender to use at the moment of sending.
type SenderSource interface {
	Sender() whatsapp.Sender
}

// Usage receives one call per inbound event.
type Usage interface {
	Track(sender string, countUser bool)
}

// Engine decides which messages answer an inbound event and sends them.
// It keeps no per-conversation state: every event is handled against the
// configuration as it is at that moment. Follow-up messages are scheduled
// and sent after the handler has returned.
type Engine struct {
	senders     SenderSource
	resolver    Resolver
	usage       Usage
	scheduler   Scheduler
	metrics     *Metrics
	log         logrus.FieldLogger
	defaultList string
}

type Option func(*Engine)

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDefaultList sets the list offered after an unknown message.
func WithDefaultList(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.defaultList = id
		}
	}
}

func New(senders SenderSource, resolver Resolver, usage Usage, opts ...Option) *Engine {
	e := &Engine{
		senders:     senders,
		resolver:    resolver,
		usage:       usage,
		scheduler:   timerScheduler{},
		log:         logrus.StandardLogger(),
		defaultList: menu.DefaultListID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "bot")
	return e
}

// dispatch carries what every send of one inbound event needs.
type dispatch struct {
	ctx context.Context
	to  string
	log logrus.FieldLogger
}

func (e *Engine) begin(ctx context.Context, event, from string) *dispatch {
	e.metrics.event(event)
	return &dispatch{
		// Follow-ups outlive the webhook request.
		ctx: context.WithoutCancel(ctx),
		to:  from,
		log: e.log.WithFields(logrus.Fields{
			"dispatch_id": uuid.NewString(),
			"event":       event,
			"to":          from,
		}),
	}
}

// HandleText answers a typed message: the configured command reply, or a
// generic reply followed by the default list.
func (e *Engine) HandleText(ctx context.Context, from, body string) {
	d := e.begin(ctx, eventText, from)
	trigger := menu.NormalizeTrigger(body)
	e.usage.Track(from, true)

	cmd, ok := e.resolver.Command(trigger)
	if !ok {
		d.log.WithField("trigger", trigger).Info("unknown trigger")
		e.sendText(d, msgNotUnderstood)
		e.after(d, defaultListDelay, func() {
			e.sendNamedList(d, e.defaultList)
		})
		return
	}

	d.log.WithField("trigger", trigger).Info("command matched")
	e.sendText(d, cmd.Message)
	if cmd.FollowUp != "" {
		e.after(d, commandFollowUpDelay, func() {
			e.sendNamedList(d, cmd.FollowUp)
		})
	}
}

// HandleSelection answers a list row selection.
func (e *Engine) HandleSelection(ctx context.Context, from, rowID, title string) {
	d := e.begin(ctx, eventSelection, from)
	d.log = d.log.WithField("row_id", rowID)
	e.usage.Track(from, false)

	reply, ok := e.resolver.Selection(rowID)
	if !ok {
		d.log.Info("no reply configured for row")
		e.metrics.fallback("selection_unknown")
		e.sendText(d, fmt.Sprintf(msgSelectionAck, title))
		return
	}
	e.dispatchReply(d, reply)
}

// HandleButton answers a reply-button press.
func (e *Engine) HandleButton(ctx context.Context, from, buttonID, text string) {
	d := e.begin(ctx, eventButton, from)
	d.log = d.log.WithField("button_id", buttonID)
	e.usage.Track(from, false)

	reply, ok := e.resolver.Selection(buttonID)
	if !ok {
		d.log.Info("no reply configured for button")
		e.metrics.fallback("button_unknown")
		e.sendText(d, fmt.Sprintf(msgButtonPressed, text))
		return
	}
	e.dispatchReply(d, reply)
}

// HandleUnsupported answers message types the bot cannot process.
func (e *Engine) HandleUnsupported(ctx context.Context, from, kind string) {
	d := e.begin(ctx, eventUnsupported, from)
	d.log = d.log.WithField("kind", kind)
	e.usage.Track(from, false)

	msg := msgUnsupported
	if strings.HasPrefix(kind, "interactive") {
		msg = msgInteractionUnsupported
	}
	d.log.Info("unsupported message")
	e.sendText(d, msg)
}

// SendDefaultList sends the default list to a number on demand.
func (e *Engine) SendDefaultList(ctx context.Context, to string) error {
	list, ok := e.resolver.List(e.defaultList)
	if !ok {
		return fmt.Errorf("list %q not found", e.defaultList)
	}
	sender := e.sender()
	if sender == nil {
		return errNoSender
	}
	err := sender.SendList(ctx, to, list)
	e.metrics.send("list", err)
	return err
}

func (e *Engine) dispatchReply(d *dispatch, reply menu.Reply) {
	d.log = d.log.WithField("reply_type", reply.Kind())

	switch r := reply.(type) {
	case menu.TextReply:
		e.sendText(d, r.Message)
	case menu.URLReply:
		e.sendText(d, textWithURL(r))
	case menu.ButtonsReply:
		e.sendText(d, r.Message)
		e.after(d, buttonsDelay, func() {
			e.sendButtons(d, r.Buttons)
		})
	case menu.SubmenuReply:
		e.sendText(d, r.Message)
		e.after(d, submenuDelay, func() {
			e.sendSubmenu(d, r.Submenu)
		})
	default:
		d.log.Errorf("unhandled reply type %T", reply)
		return
	}

	if followUp := reply.Base().FollowUp; followUp != "" {
		e.after(d, selectionFollowUpDelay, func() {
			e.sendNamedList(d, followUp)
		})
	}
}

// after schedules fn; a panic inside fn is logged instead of crashing the
// timer goroutine.
func (e *Engine) after(d *dispatch, delay time.Duration, fn func()) {
	e.scheduler.After(delay, func() {
		defer func() {
			if p := recover(); p != nil {
				d.log.WithField("panic", p).Error("delayed send panicked")
			}
		}()
		fn()
	})
}

func (e *Engine) sender() whatsapp.Sender {
	if e.senders == nil {
		return nil
	}
	return e.senders.Sender()
}

func (e *Engine) sendText(d *dispatch, body string) error {
	sender := e.sender()
	err := errNoSender
	if sender != nil {
		err = sender.SendText(d.ctx, d.to, body)
	}
	e.metrics.send("text", err)
	if err != nil {
		logSendError(d.log, "text", err)
	}
	return err
}

// sendNamedList resolves a top-level list and sends it. A missing list is
// logged and nothing is sent.
func (e *Engine) sendNamedList(d *dispatch, id string) {
	list, ok := e.resolver.List(id)
	if !ok {
		d.log.WithField("list_id", id).Warn("follow-up list not found")
		e.metrics.fallback("list_missing")
		return
	}
	e.sendList(d, id, list)
}

func (e *Engine) sendSubmenu(d *dispatch, id string) {
	list, ok := e.resolver.Submenu(id)
	if !ok {
		d.log.WithField("submenu_id", id).Warn("submenu not found, sending hint")
		e.metrics.fallback("submenu_missing")
		e.sendText(d, msgSubmenuMissing)
		return
	}
	e.sendList(d, id, list)
}

func (e *Engine) sendList(d *dispatch, id string, list menu.List) {
	sender := e.sender()
	err := errNoSender
	if sender != nil {
		err = sender.SendList(d.ctx, d.to, list)
	}
	e.metrics.send("list", err)
	if err != nil {
		logSendError(d.log.WithField("list_id", id), "list", err)
	}
}

// sendButtons sends the reply buttons, falling back to a text enumeration
// of their titles when the interactive send fails.
func (e *Engine) sendButtons(d *dispatch, buttons []menu.Button) {
	sender := e.sender()
	err := errNoSender
	if sender != nil {
		err = sender.SendButtons(d.ctx, d.to, msgButtonsPrompt, buttons)
	}
	e.metrics.send("buttons", err)
	if err == nil {
		return
	}

	logSendError(d.log, "buttons", err)
	e.metrics.fallback("buttons_as_text")
	e.sendText(d, buttonsAsText(buttons))
}

func buttonsAsText(buttons []menu.Button) string {
	var b strings.Builder
	b.WriteString(msgButtonsPrompt)
	for i, btn := range buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Title)
	}
	return b.String()
}

func textWithURL(r menu.URLReply) string {
	if r.URL == "" {
		return r.Message
	}
	if r.URLText != "" {
		return fmt.Sprintf("%s\n\n🔗 %s: %s", r.Message, r.URLText, r.URL)
	}
	return fmt.Sprintf("%s\n\n🔗 %s", r.Message, r.URL)
}

func logSendError(log logrus.FieldLogger, kind string, err error) {
	fields := logrus.Fields{"message_kind": kind}
	var de *whatsapp.DeliveryError
	if errors.As(err, &de) {
		fields["error_kind"] = de.Kind
		fields["retryable"] = de.Retryable()
	}
	log.WithFields(fields).WithError(err).Warn("send failed")
}
