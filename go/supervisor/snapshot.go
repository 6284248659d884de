package supervisor

import (
	"io"

	"github.com/hiveprotocol/hive/go/commit"
	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
	"github.com/hiveprotocol/hive/go/replicatedlog"
)

// registerSnapshot wires distributed_commits into the cell's snapshot as
// the Values-priority section (spec.md §6: distributed commits are
// "persisted as part of the coordinator cell's replicated state");
// simple_commits is never included, matching §4.2.
func (s *Supervisor) registerSnapshot() {
	s.log.RegisterSaver(replicatedlog.SaveValues, "distributed_commits", s.saveCommits)
	s.log.RegisterLoader("distributed_commits", s.loadCommits)
}

func (s *Supervisor) saveCommits(w io.Writer) error {
	var snapshot hivepb.CommitSnapshot
	for _, c := range s.registry.Distributed() {
		var entry = hivepb.CommitSnapshotEntry{
			TransactionIdHi: c.TransactionId.Hi,
			TransactionIdLo: c.TransactionId.Lo,
			MutationIdHi:    c.MutationId.Hi,
			MutationIdLo:    c.MutationId.Lo,
			CommitTimestamp: uint64(c.CommitTimestamp),
			PersistentState: int32(c.PersistentState),
		}
		for _, p := range c.ParticipantCellIds {
			entry.ParticipantCellHis = append(entry.ParticipantCellHis, p.Hi)
			entry.ParticipantCellLos = append(entry.ParticipantCellLos, p.Lo)
		}
		for r := range c.RespondedCellIds {
			entry.RespondedCellHis = append(entry.RespondedCellHis, r.Hi)
			entry.RespondedCellLos = append(entry.RespondedCellLos, r.Lo)
		}
		snapshot.Entries = append(snapshot.Entries, &entry)
	}

	var b, err = hivepb.Marshal(&snapshot)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (s *Supervisor) loadCommits(r io.Reader) error {
	var b, err = io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	var snapshot hivepb.CommitSnapshot
	if err = hivepb.Unmarshal(b, &snapshot); err != nil {
		return err
	}

	s.registry.Clear()
	for _, entry := range snapshot.Entries {
		var participants = decodeCellIds(entry.ParticipantCellHis, entry.ParticipantCellLos)
		var c = commit.New(
			hiveid.TransactionId{Hi: entry.TransactionIdHi, Lo: entry.TransactionIdLo},
			hiveid.MutationId{Hi: entry.MutationIdHi, Lo: entry.MutationIdLo},
			participants,
		)
		c.CommitTimestamp = hiveid.Timestamp(entry.CommitTimestamp)
		c.PersistentState = commit.State(entry.PersistentState)
		c.TransientState = c.PersistentState
		for i := range entry.RespondedCellHis {
			c.MarkResponded(hiveid.CellId{Hi: entry.RespondedCellHis[i], Lo: entry.RespondedCellLos[i]})
		}
		s.registry.InsertDistributed(c)
	}
	return nil
}
