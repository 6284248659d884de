// Package hivepb defines the wire messages exchanged by the coordinator:
// client-facing RPC request/response pairs and the encapsulated messages
// carried by the mailbox layer between cells. Messages are gogo-protobuf
// types, matching the wire conventions estuary-flow's own protocol
// packages (go/protocols/...) use throughout.
package hivepb

import (
	"fmt"

	"github.com/gogo/protobuf/proto"
)

//
// Client-facing RPCs (spec.md §6).
//

// CommitTransactionRequest is the CommitTransaction RPC request.
type CommitTransactionRequest struct {
	TransactionIdHi     uint64   `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo     uint64   `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	MutationIdHi        uint64   `protobuf:"varint,3,opt,name=mutation_id_hi" json:"mutation_id_hi,omitempty"`
	MutationIdLo        uint64   `protobuf:"varint,4,opt,name=mutation_id_lo" json:"mutation_id_lo,omitempty"`
	ParticipantCellIds  []uint64 `protobuf:"varint,5,rep,name=participant_cell_ids" json:"participant_cell_ids,omitempty"`
	ParticipantCellLos  []uint64 `protobuf:"varint,6,rep,name=participant_cell_los" json:"participant_cell_los,omitempty"`
}

func (m *CommitTransactionRequest) Reset()         { *m = CommitTransactionRequest{} }
func (m *CommitTransactionRequest) String() string { return proto.CompactTextString(m) }
func (*CommitTransactionRequest) ProtoMessage()    {}

// CommitTransactionResponse is the CommitTransaction RPC response.
type CommitTransactionResponse struct {
	CommitTimestamp uint64 `protobuf:"varint,1,opt,name=commit_timestamp" json:"commit_timestamp,omitempty"`
}

func (m *CommitTransactionResponse) Reset()         { *m = CommitTransactionResponse{} }
func (m *CommitTransactionResponse) String() string { return proto.CompactTextString(m) }
func (*CommitTransactionResponse) ProtoMessage()    {}

// StartTransactionRequest is the StartTransaction RPC request a client
// sends to a tablet cell to register it as a participant (spec.md §4.5's
// AddTabletParticipant).
type StartTransactionRequest struct {
	TransactionIdHi uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	StartTimestamp  uint64 `protobuf:"varint,3,opt,name=start_timestamp" json:"start_timestamp,omitempty"`
	TimeoutMs       uint64 `protobuf:"varint,4,opt,name=timeout_ms" json:"timeout_ms,omitempty"`
}

func (m *StartTransactionRequest) Reset()         { *m = StartTransactionRequest{} }
func (m *StartTransactionRequest) String() string { return proto.CompactTextString(m) }
func (*StartTransactionRequest) ProtoMessage()    {}

// StartTransactionResponse is the StartTransaction RPC response.
type StartTransactionResponse struct{}

func (m *StartTransactionResponse) Reset()         { *m = StartTransactionResponse{} }
func (m *StartTransactionResponse) String() string { return proto.CompactTextString(m) }
func (*StartTransactionResponse) ProtoMessage()    {}

// AbortTransactionRequest is the AbortTransaction RPC request.
type AbortTransactionRequest struct {
	TransactionIdHi uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	Force           bool   `protobuf:"varint,3,opt,name=force" json:"force,omitempty"`
}

func (m *AbortTransactionRequest) Reset()         { *m = AbortTransactionRequest{} }
func (m *AbortTransactionRequest) String() string { return proto.CompactTextString(m) }
func (*AbortTransactionRequest) ProtoMessage()    {}

// AbortTransactionResponse is the AbortTransaction RPC response (empty).
type AbortTransactionResponse struct{}

func (m *AbortTransactionResponse) Reset()         { *m = AbortTransactionResponse{} }
func (m *AbortTransactionResponse) String() string { return proto.CompactTextString(m) }
func (*AbortTransactionResponse) ProtoMessage()    {}

// PingTransactionRequest is the PingTransaction RPC request.
type PingTransactionRequest struct {
	TransactionIdHi uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	PingAncestors   bool   `protobuf:"varint,3,opt,name=ping_ancestors" json:"ping_ancestors,omitempty"`
}

func (m *PingTransactionRequest) Reset()         { *m = PingTransactionRequest{} }
func (m *PingTransactionRequest) String() string { return proto.CompactTextString(m) }
func (*PingTransactionRequest) ProtoMessage()    {}

// PingTransactionResponse is the PingTransaction RPC response (empty).
type PingTransactionResponse struct{}

func (m *PingTransactionResponse) Reset()         { *m = PingTransactionResponse{} }
func (m *PingTransactionResponse) String() string { return proto.CompactTextString(m) }
func (*PingTransactionResponse) ProtoMessage()    {}

//
// Mailbox envelope (spec.md §4.1) and its encapsulated payloads (spec.md §6).
//

// MailboxEnvelope is the unit the mailbox layer exchanges between cells:
// a sender-assigned sequence number plus an opaque, tagged payload.
type MailboxEnvelope struct {
	SenderCellIdHi uint64 `protobuf:"varint,1,opt,name=sender_cell_id_hi" json:"sender_cell_id_hi,omitempty"`
	SenderCellIdLo uint64 `protobuf:"varint,2,opt,name=sender_cell_id_lo" json:"sender_cell_id_lo,omitempty"`
	Sequence       uint64 `protobuf:"varint,3,opt,name=sequence" json:"sequence,omitempty"`
	PayloadType    string `protobuf:"bytes,4,opt,name=payload_type" json:"payload_type,omitempty"`
	Payload        []byte `protobuf:"bytes,5,opt,name=payload" json:"payload,omitempty"`
}

func (m *MailboxEnvelope) Reset()         { *m = MailboxEnvelope{} }
func (m *MailboxEnvelope) String() string { return proto.CompactTextString(m) }
func (*MailboxEnvelope) ProtoMessage()    {}

// ReceiveMessagesRequest carries a batch of envelopes from sender to
// receiver, per spec.md §4.1 ReceiveMessages.
type ReceiveMessagesRequest struct {
	SenderCellIdHi uint64             `protobuf:"varint,1,opt,name=sender_cell_id_hi" json:"sender_cell_id_hi,omitempty"`
	SenderCellIdLo uint64             `protobuf:"varint,2,opt,name=sender_cell_id_lo" json:"sender_cell_id_lo,omitempty"`
	Messages       []*MailboxEnvelope `protobuf:"bytes,3,rep,name=messages" json:"messages,omitempty"`
}

func (m *ReceiveMessagesRequest) Reset()         { *m = ReceiveMessagesRequest{} }
func (m *ReceiveMessagesRequest) String() string { return proto.CompactTextString(m) }
func (*ReceiveMessagesRequest) ProtoMessage()    {}

// ReceiveMessagesResponse acknowledges up to which sequence the receiver
// has durably applied, piggybacking the acknowledgement described in
// spec.md §4.1 AcknowledgeMessages.
type ReceiveMessagesResponse struct {
	NextExpectedSequence uint64 `protobuf:"varint,1,opt,name=next_expected_sequence" json:"next_expected_sequence,omitempty"`
}

func (m *ReceiveMessagesResponse) Reset()         { *m = ReceiveMessagesResponse{} }
func (m *ReceiveMessagesResponse) String() string { return proto.CompactTextString(m) }
func (*ReceiveMessagesResponse) ProtoMessage()    {}

// AcknowledgeMessagesRequest lets the sender retire entries of
// pending_outgoing, per spec.md §4.1.
type AcknowledgeMessagesRequest struct {
	ReceiverCellIdHi uint64 `protobuf:"varint,1,opt,name=receiver_cell_id_hi" json:"receiver_cell_id_hi,omitempty"`
	ReceiverCellIdLo uint64 `protobuf:"varint,2,opt,name=receiver_cell_id_lo" json:"receiver_cell_id_lo,omitempty"`
	UpToSequence     uint64 `protobuf:"varint,3,opt,name=up_to_sequence" json:"up_to_sequence,omitempty"`
}

func (m *AcknowledgeMessagesRequest) Reset()         { *m = AcknowledgeMessagesRequest{} }
func (m *AcknowledgeMessagesRequest) String() string { return proto.CompactTextString(m) }
func (*AcknowledgeMessagesRequest) ProtoMessage()    {}

// AcknowledgeMessagesResponse is empty; acknowledgement is fire-and-forget
// from the receiver's point of view.
type AcknowledgeMessagesResponse struct{}

func (m *AcknowledgeMessagesResponse) Reset()         { *m = AcknowledgeMessagesResponse{} }
func (m *AcknowledgeMessagesResponse) String() string { return proto.CompactTextString(m) }
func (*AcknowledgeMessagesResponse) ProtoMessage()    {}

//
// Payload types carried inside MailboxEnvelope.Payload, and the
// coordinator-local mutations logged to the replicated log (spec.md §6).
//

// PrepareTransactionCommit is posted coordinator → participant.
type PrepareTransactionCommit struct {
	TransactionIdHi     uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo     uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	PrepareTimestamp    uint64 `protobuf:"varint,3,opt,name=prepare_timestamp" json:"prepare_timestamp,omitempty"`
	CoordinatorCellIdHi uint64 `protobuf:"varint,4,opt,name=coordinator_cell_id_hi" json:"coordinator_cell_id_hi,omitempty"`
	CoordinatorCellIdLo uint64 `protobuf:"varint,5,opt,name=coordinator_cell_id_lo" json:"coordinator_cell_id_lo,omitempty"`
}

func (m *PrepareTransactionCommit) Reset()         { *m = PrepareTransactionCommit{} }
func (m *PrepareTransactionCommit) String() string { return proto.CompactTextString(m) }
func (*PrepareTransactionCommit) ProtoMessage()    {}

// OnTransactionCommitPrepared is posted participant → coordinator.
type OnTransactionCommitPrepared struct {
	TransactionIdHi    uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo    uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	ParticipantCellIdHi uint64 `protobuf:"varint,3,opt,name=participant_cell_id_hi" json:"participant_cell_id_hi,omitempty"`
	ParticipantCellIdLo uint64 `protobuf:"varint,4,opt,name=participant_cell_id_lo" json:"participant_cell_id_lo,omitempty"`
	HasError           bool   `protobuf:"varint,5,opt,name=has_error" json:"has_error,omitempty"`
	ErrorMessage       string `protobuf:"bytes,6,opt,name=error_message" json:"error_message,omitempty"`
}

func (m *OnTransactionCommitPrepared) Reset()         { *m = OnTransactionCommitPrepared{} }
func (m *OnTransactionCommitPrepared) String() string { return proto.CompactTextString(m) }
func (*OnTransactionCommitPrepared) ProtoMessage()    {}

// CommitPreparedTransaction is posted coordinator → participant(s) (and
// applied locally at the coordinator) once every participant has
// prepared.
type CommitPreparedTransaction struct {
	TransactionIdHi uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	CommitTimestamp uint64 `protobuf:"varint,3,opt,name=commit_timestamp" json:"commit_timestamp,omitempty"`
	IsDistributed   bool   `protobuf:"varint,4,opt,name=is_distributed" json:"is_distributed,omitempty"`
}

func (m *CommitPreparedTransaction) Reset()         { *m = CommitPreparedTransaction{} }
func (m *CommitPreparedTransaction) String() string { return proto.CompactTextString(m) }
func (*CommitPreparedTransaction) ProtoMessage()    {}

// AbortFailedTransaction is posted coordinator → participant(s) (and
// applied locally) when a prepare failure aborts the commit.
type AbortFailedTransaction struct {
	TransactionIdHi uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	ErrorMessage    string `protobuf:"bytes,3,opt,name=error_message" json:"error_message,omitempty"`
}

func (m *AbortFailedTransaction) Reset()         { *m = AbortFailedTransaction{} }
func (m *AbortFailedTransaction) String() string { return proto.CompactTextString(m) }
func (*AbortFailedTransaction) ProtoMessage()    {}

// StartDistributedCommit is the coordinator-local mutation logged when a
// distributed CommitTransaction RPC lands on the leader; it is never sent
// over the mailbox wire.
type StartDistributedCommit struct {
	TransactionIdHi    uint64   `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo    uint64   `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	MutationIdHi       uint64   `protobuf:"varint,3,opt,name=mutation_id_hi" json:"mutation_id_hi,omitempty"`
	MutationIdLo       uint64   `protobuf:"varint,4,opt,name=mutation_id_lo" json:"mutation_id_lo,omitempty"`
	ParticipantCellHis []uint64 `protobuf:"varint,5,rep,name=participant_cell_his" json:"participant_cell_his,omitempty"`
	ParticipantCellLos []uint64 `protobuf:"varint,6,rep,name=participant_cell_los" json:"participant_cell_los,omitempty"`
	PrepareTimestamp   uint64   `protobuf:"varint,7,opt,name=prepare_timestamp" json:"prepare_timestamp,omitempty"`
}

func (m *StartDistributedCommit) Reset()         { *m = StartDistributedCommit{} }
func (m *StartDistributedCommit) String() string { return proto.CompactTextString(m) }
func (*StartDistributedCommit) ProtoMessage()    {}

// FinalizeDistributedCommit is the coordinator-local mutation logged once
// every participant has prepared and a commit timestamp was obtained.
type FinalizeDistributedCommit struct {
	TransactionIdHi uint64 `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo uint64 `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	CommitTimestamp uint64 `protobuf:"varint,3,opt,name=commit_timestamp" json:"commit_timestamp,omitempty"`
}

func (m *FinalizeDistributedCommit) Reset()         { *m = FinalizeDistributedCommit{} }
func (m *FinalizeDistributedCommit) String() string { return proto.CompactTextString(m) }
func (*FinalizeDistributedCommit) ProtoMessage()    {}

// CommitSnapshotEntry is one distributed_commits row in a cell's
// snapshot (spec.md §6's "Keys priority before Values priority" layout
// is implemented by replicatedlog.Log; this message is the Values
// payload for the commit registry's section).
type CommitSnapshotEntry struct {
	TransactionIdHi      uint64   `protobuf:"varint,1,opt,name=transaction_id_hi" json:"transaction_id_hi,omitempty"`
	TransactionIdLo      uint64   `protobuf:"varint,2,opt,name=transaction_id_lo" json:"transaction_id_lo,omitempty"`
	MutationIdHi         uint64   `protobuf:"varint,3,opt,name=mutation_id_hi" json:"mutation_id_hi,omitempty"`
	MutationIdLo         uint64   `protobuf:"varint,4,opt,name=mutation_id_lo" json:"mutation_id_lo,omitempty"`
	ParticipantCellHis   []uint64 `protobuf:"varint,5,rep,name=participant_cell_his" json:"participant_cell_his,omitempty"`
	ParticipantCellLos   []uint64 `protobuf:"varint,6,rep,name=participant_cell_los" json:"participant_cell_los,omitempty"`
	RespondedCellHis     []uint64 `protobuf:"varint,7,rep,name=responded_cell_his" json:"responded_cell_his,omitempty"`
	RespondedCellLos     []uint64 `protobuf:"varint,8,rep,name=responded_cell_los" json:"responded_cell_los,omitempty"`
	CommitTimestamp      uint64   `protobuf:"varint,9,opt,name=commit_timestamp" json:"commit_timestamp,omitempty"`
	PersistentState      int32    `protobuf:"varint,10,opt,name=persistent_state" json:"persistent_state,omitempty"`
}

func (m *CommitSnapshotEntry) Reset()         { *m = CommitSnapshotEntry{} }
func (m *CommitSnapshotEntry) String() string { return proto.CompactTextString(m) }
func (*CommitSnapshotEntry) ProtoMessage()    {}

// CommitSnapshot is the whole distributed_commits map, serialized as the
// Values-priority section of a cell's snapshot.
type CommitSnapshot struct {
	Entries []*CommitSnapshotEntry `protobuf:"bytes,1,rep,name=entries" json:"entries,omitempty"`
}

func (m *CommitSnapshot) Reset()         { *m = CommitSnapshot{} }
func (m *CommitSnapshot) String() string { return proto.CompactTextString(m) }
func (*CommitSnapshot) ProtoMessage()    {}

// Marshal serializes m using gogoproto's reflection-based codec. It is a
// thin helper so callers don't need to import gogo/protobuf directly.
func Marshal(m proto.Message) ([]byte, error) {
	var b, err = proto.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling %T: %w", m, err)
	}
	return b, nil
}

// Unmarshal deserializes into m using gogoproto's reflection-based codec.
func Unmarshal(b []byte, m proto.Message) error {
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("unmarshaling %T: %w", m, err)
	}
	return nil
}
