package oscinput

import (
	"strings"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/control"
)

// DefaultFeedbackPrefix is prepended to the control name of each feedback message.
const DefaultFeedbackPrefix = "/lacylights/control"

// Sender is the part of *osc.Client used for feedback.
type Sender interface {
	Send(packet osc.Packet) error
}

// Feedback echoes dispatched control values to an OSC surface as floats in 0..1.
type Feedback struct {
	sender Sender
	prefix string
}

// NewFeedback creates a Feedback sending to host:port.
func NewFeedback(host string, port int) *Feedback {
	return NewFeedbackWithSender(osc.NewClient(host, port), DefaultFeedbackPrefix)
}

// NewFeedbackWithSender creates a Feedback over an existing sender.
func NewFeedbackWithSender(sender Sender, prefix string) *Feedback {
	if prefix == "" {
		prefix = DefaultFeedbackPrefix
	}
	return &Feedback{sender: sender, prefix: strings.TrimRight(prefix, "/")}
}

// Address returns the feedback address for a control.
func (f *Feedback) Address(c string) string {
	return f.prefix + "/" + c
}

// OnDispatch sends one message per dispatch that wrote at least one channel.
// Its signature matches control.Dispatcher.OnDispatch.
func (f *Feedback) OnDispatch(res control.Result) {
	if res.Writes == 0 {
		return
	}
	msg := osc.NewMessage(f.Address(string(res.Control)))
	msg.Append(float32(res.Value) / 255)
	if err := f.sender.Send(msg); err != nil {
		log.Debugf("🛰️ OSC feedback failed: %v", err)
	}
}
