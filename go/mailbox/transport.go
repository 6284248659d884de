package mailbox

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
)

// Server adapts a Manager to the hivepb.MailboxTransportServer RPC
// surface (spec.md §4.1).
type Server struct {
	mgr *Manager
}

// NewServer returns a gRPC-servable wrapper around mgr.
func NewServer(mgr *Manager) *Server {
	return &Server{mgr: mgr}
}

func (s *Server) ReceiveMessages(ctx context.Context, req *hivepb.ReceiveMessagesRequest) (*hivepb.ReceiveMessagesResponse, error) {
	var sender = hiveid.CellId{Hi: req.SenderCellIdHi, Lo: req.SenderCellIdLo}
	var messages = make([]Message, len(req.Messages))
	for i, env := range req.Messages {
		messages[i] = Message{
			Sequence:    env.Sequence,
			PayloadType: env.PayloadType,
			Payload:     env.Payload,
		}
	}
	var next = s.mgr.ReceiveMessages(sender, messages)
	return &hivepb.ReceiveMessagesResponse{NextExpectedSequence: next}, nil
}

func (s *Server) AcknowledgeMessages(ctx context.Context, req *hivepb.AcknowledgeMessagesRequest) (*hivepb.AcknowledgeMessagesResponse, error) {
	var receiver = hiveid.CellId{Hi: req.ReceiverCellIdHi, Lo: req.ReceiverCellIdLo}
	s.mgr.AcknowledgeMessages(receiver, req.UpToSequence)
	return &hivepb.AcknowledgeMessagesResponse{}, nil
}

var _ hivepb.MailboxTransportServer = (*Server)(nil)

// Resolver resolves a CellId to the gRPC address of its current leader.
// celldirectory.Directory implements this; it is kept as a narrow
// interface here so the mailbox package does not depend on etcd.
type Resolver interface {
	Resolve(ctx context.Context, cellID hiveid.CellId) (address string, err error)
}

// Dialer establishes (or reuses) a client connection to address.
type Dialer func(ctx context.Context, address string) (hivepb.MailboxTransportClient, error)

// Sender drives outbound delivery of one cell's mailboxes: for each
// peer with a pending_outgoing backlog, it resolves the peer's current
// leader address and retries ReceiveMessages with capped exponential
// backoff until the peer acknowledges receipt (spec.md §4.1: "there is
// no hard timeout — mailboxes are eventually consistent").
type Sender struct {
	self     hiveid.CellId
	mgr      *Manager
	resolver Resolver
	dial     Dialer
	logger   *log.Entry
}

// NewSender returns a Sender for the local cell self.
func NewSender(self hiveid.CellId, mgr *Manager, resolver Resolver, dial Dialer, logger *log.Entry) *Sender {
	return &Sender{self: self, mgr: mgr, resolver: resolver, dial: dial, logger: logger}
}

// Deliver attempts to flush peer's pending outgoing backlog, retrying
// with backoff until ctx is cancelled or delivery succeeds. It returns
// nil as soon as one ReceiveMessages RPC completes successfully, even if
// the peer reports it is still missing earlier sequences (the next call
// to Deliver, or the peer's own piggybacked nack, will resend them).
func (s *Sender) Deliver(ctx context.Context, peer hiveid.CellId) error {
	var pending = s.mgr.GetOrCreateMailbox(peer).PendingOutgoing()
	if len(pending) == 0 {
		return nil
	}

	var envelopes = make([]*hivepb.MailboxEnvelope, len(pending))
	for i, msg := range pending {
		envelopes[i] = &hivepb.MailboxEnvelope{
			SenderCellIdHi: s.self.Hi,
			SenderCellIdLo: s.self.Lo,
			Sequence:       msg.Sequence,
			PayloadType:    msg.PayloadType,
			Payload:        msg.Payload,
		}
	}
	var req = &hivepb.ReceiveMessagesRequest{
		SenderCellIdHi: s.self.Hi,
		SenderCellIdLo: s.self.Lo,
		Messages:       envelopes,
	}

	var b = newBackoff()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err = s.attempt(ctx, peer, req)
		if err == nil {
			return nil
		}
		if s.logger != nil {
			s.logger.WithFields(log.Fields{
				"peer":  peer.String(),
				"error": err,
			}).Debug("mailbox delivery failed, retrying")
		}

		var delay = b.Next()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (s *Sender) attempt(ctx context.Context, peer hiveid.CellId, req *hivepb.ReceiveMessagesRequest) error {
	var address, err = s.resolver.Resolve(ctx, peer)
	if err != nil {
		return errors.Wrap(err, "resolving mailbox peer address")
	}
	var client hivepb.MailboxTransportClient
	if client, err = s.dial(ctx, address); err != nil {
		return errors.Wrap(err, "dialing mailbox peer")
	}
	var resp *hivepb.ReceiveMessagesResponse
	if resp, err = client.ReceiveMessages(ctx, req, grpc.WaitForReady(true)); err != nil {
		return errors.Wrap(err, "ReceiveMessages RPC")
	}

	// resp.NextExpectedSequence piggybacks the peer's acknowledgement
	// (spec.md §4.1): every entry of our pendingOutgoing strictly below
	// it has been durably applied there and can be retired. A zero value
	// means the peer has not applied anything from us yet, so there is
	// nothing to retire.
	if resp.NextExpectedSequence > 0 {
		s.mgr.AcknowledgeMessages(peer, resp.NextExpectedSequence-1)
	}
	return nil
}
