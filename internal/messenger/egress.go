package messenger

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Egress delivers a text reply to a conversation.
type Egress interface {
	SendText(ctx context.Context, recipientID, text string) error
}

const (
	ModeGraph  = "graph"
	ModeRelay  = "relay"
	ModeAuto   = "auto"
	ModeDryRun = "dryrun"
)

// NewEgress picks the delivery path. In auto mode the relay is preferred while connected and a
// failed relay write falls back to the Graph API once.
func NewEgress(mode string, c *Client, relay *Relay, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeDryRun:
		return &dryRunEgress{logger: logger}
	case ModeRelay:
		return &relayEgress{relay: relay}
	case ModeAuto:
		return &autoEgress{relay: &relayEgress{relay: relay}, graph: &graphEgress{c: c}, logger: logger}
	default:
		return &graphEgress{c: c}
	}
}

type graphEgress struct{ c *Client }

func (g *graphEgress) SendText(ctx context.Context, recipientID, text string) error {
	if g == nil || g.c == nil {
		return errors.New("graph egress not available")
	}
	return g.c.SendText(ctx, recipientID, text)
}

type relayEgress struct{ relay *Relay }

func (r *relayEgress) SendText(ctx context.Context, recipientID, text string) error {
	if r == nil || r.relay == nil {
		return errors.New("relay egress not available")
	}
	return r.relay.Send(ctx, recipientID, text)
}

func (r *relayEgress) connected() bool {
	return r != nil && r.relay != nil && r.relay.State() == RelayConnected
}

type autoEgress struct {
	relay  *relayEgress
	graph  *graphEgress
	logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, recipientID, text string) error {
	if a.relay.connected() {
		err := a.relay.SendText(ctx, recipientID, text)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("recipient_id", recipientID), zap.Error(err))
	}
	return a.graph.SendText(ctx, recipientID, text)
}

// dryRunEgress only logs.
type dryRunEgress struct{ logger *zap.Logger }

func (d *dryRunEgress) SendText(_ context.Context, recipientID, text string) error {
	d.logger.Info("egress_dryrun", zap.String("recipient_id", recipientID), zap.Int("len", len(text)))
	return nil
}
