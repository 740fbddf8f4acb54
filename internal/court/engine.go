// Package court implements the multi-round dispute adjudication state
// machine: juror registration against the sortition index, drafting by
// weighted random search, commit/reveal phase progression driven by the term
// clock, and appeal escalation ending in a full-stake final round.
package court

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quorumnet/tribunal/internal/safemath"
	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/sumtree"
	"github.com/quorumnet/tribunal/internal/termclock"
	"github.com/quorumnet/tribunal/pkg/log"
)

// Engine owns all adjudication state: the sortition index, the juror
// registry and every dispute's rounds. All operations are serialized by the
// caller; each validates fully before mutating, so a failed call leaves the
// engine exactly as it was.
type Engine struct {
	cfg     Config
	tree    *sumtree.Tree
	votes   Voting
	seeder  Seeder
	journal Journal

	disputes map[DisputeID]*Dispute
	keys     map[JurorID]sumtree.Key
	jurors   map[sumtree.Key]JurorID

	log zerolog.Logger
}

// NewEngine creates an engine with an empty index and no disputes.
func NewEngine(cfg Config, votes Voting, seeder Seeder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("court config: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		tree:     sumtree.New(),
		votes:    votes,
		seeder:   seeder,
		disputes: make(map[DisputeID]*Dispute),
		keys:     make(map[JurorID]sumtree.Key),
		jurors:   make(map[sumtree.Key]JurorID),
		log:      log.Court,
	}, nil
}

// SetJournal attaches a journal receiving every committed operation. Attach
// it only after any replay has finished.
func (e *Engine) SetJournal(j Journal) {
	e.journal = j
}

// RegisterJuror inserts a new participant into the sortition index with the
// given active stake, checkpointed at term.
func (e *Engine) RegisterJuror(id JurorID, term termclock.Term, amount stake.Weight) error {
	if _, ok := e.keys[id]; ok {
		return fmt.Errorf("juror %s: %w", id, ErrJurorExists)
	}
	if amount.Cmp(e.cfg.MinActiveStake) < 0 {
		return fmt.Errorf("juror %s stake %s below minimum %s: %w", id, amount, e.cfg.MinActiveStake, ErrInsufficientStake)
	}
	if err := e.tree.CheckInsert(term, amount); err != nil {
		return fmt.Errorf("register juror %s: %w", id, err)
	}
	if err := e.record(Op{Kind: OpRegisterJuror, Juror: id, Term: term, Amount: amount}); err != nil {
		return err
	}

	// Validated above; the insert cannot fail.
	key, _ := e.tree.Insert(term, amount)
	e.keys[id] = key
	e.jurors[key] = id
	e.log.Info().Stringer("juror", id).Uint64("key", uint64(key)).
		Uint64("term", uint64(term)).Str("stake", amount.String()).
		Msg("juror registered")
	return nil
}

// ActivateStake adds amount to the juror's active stake as of term.
func (e *Engine) ActivateStake(id JurorID, term termclock.Term, amount stake.Weight) error {
	key, ok := e.keys[id]
	if !ok {
		return fmt.Errorf("juror %s: %w", id, ErrUnknownJuror)
	}
	if err := e.tree.CheckUpdate(key, term, amount, true); err != nil {
		return fmt.Errorf("activate stake for %s: %w", id, err)
	}
	if err := e.record(Op{Kind: OpActivateStake, Juror: id, Term: term, Amount: amount}); err != nil {
		return err
	}

	_ = e.tree.Update(key, term, amount, true)
	e.log.Info().Stringer("juror", id).Uint64("term", uint64(term)).
		Str("amount", amount.String()).Msg("stake activated")
	return nil
}

// DeactivateStake removes amount from the juror's active stake as of term.
// The remaining stake must be zero or stay at or above the minimum.
func (e *Engine) DeactivateStake(id JurorID, term termclock.Term, amount stake.Weight) error {
	key, ok := e.keys[id]
	if !ok {
		return fmt.Errorf("juror %s: %w", id, ErrUnknownJuror)
	}
	current := e.tree.ValueAt(key, term)
	remaining, ok := current.Sub(amount)
	if !ok {
		return fmt.Errorf("deactivate %s from %s: %w", amount, current, sumtree.ErrUnderflow)
	}
	if !remaining.IsZero() && remaining.Cmp(e.cfg.MinActiveStake) < 0 {
		return fmt.Errorf("remaining stake %s below minimum %s: %w", remaining, e.cfg.MinActiveStake, ErrInsufficientStake)
	}
	if err := e.tree.CheckUpdate(key, term, amount, false); err != nil {
		return fmt.Errorf("deactivate stake for %s: %w", id, err)
	}
	if err := e.record(Op{Kind: OpDeactivateStake, Juror: id, Term: term, Amount: amount}); err != nil {
		return err
	}

	_ = e.tree.Update(key, term, amount, false)
	e.log.Info().Stringer("juror", id).Uint64("term", uint64(term)).
		Str("amount", amount.String()).Msg("stake deactivated")
	return nil
}

// ActiveStake returns the juror's active stake as of term.
func (e *Engine) ActiveStake(id JurorID, term termclock.Term) (stake.Weight, error) {
	key, ok := e.keys[id]
	if !ok {
		return stake.Weight{}, fmt.Errorf("juror %s: %w", id, ErrUnknownJuror)
	}
	return e.tree.ValueAt(key, term), nil
}

// TotalStakeAt returns the total active stake in the index as of term.
func (e *Engine) TotalStakeAt(term termclock.Term) stake.Weight {
	return e.tree.TotalAt(term)
}

// OpenDispute creates round 0 of a new dispute, drafting at draftTerm with
// the requested juror count.
func (e *Engine) OpenDispute(id DisputeID, draftTerm termclock.Term, jurors uint64) error {
	if _, ok := e.disputes[id]; ok {
		return fmt.Errorf("dispute %d: %w", id, ErrDisputeExists)
	}
	if jurors == 0 {
		return fmt.Errorf("dispute %d needs at least one juror: %w", id, ErrInvalidAdjudicationState)
	}
	final := e.cfg.MaxRounds == 0
	round, err := e.newRound(RoundID{Dispute: id, Number: 0}, draftTerm, jurors, final)
	if err != nil {
		return fmt.Errorf("open dispute %d: %w", id, err)
	}
	if final {
		if err := e.votes.CreateVote(round.ID, e.cfg.VoteOutcomes); err != nil {
			return fmt.Errorf("open dispute %d: create vote: %w", id, err)
		}
	}
	if err := e.record(Op{Kind: OpOpenDispute, Dispute: id, Term: draftTerm, Count: jurors}); err != nil {
		return err
	}

	// The seed is drawn only after the op is journaled, so a failed record
	// does not advance the seeder and desynchronize future replays.
	e.disputes[id] = &Dispute{
		ID:     id,
		Rounds: []*Round{round},
		seed:   e.seeder.NextSeed(),
	}
	e.log.Info().Uint64("dispute", uint64(id)).Uint64("draft_term", uint64(draftTerm)).
		Uint64("jurors", jurors).Msg("dispute opened")
	return nil
}

// newRound builds a round and its phase schedule. Final rounds skip drafting
// and start committing immediately.
func (e *Engine) newRound(id RoundID, draftTerm termclock.Term, jurors uint64, final bool) (*Round, error) {
	commitEnd, err := draftTerm.Add(e.cfg.CommitTerms)
	if err != nil {
		return nil, err
	}
	revealEnd, err := commitEnd.Add(e.cfg.RevealTerms)
	if err != nil {
		return nil, err
	}
	appealEnd, err := revealEnd.Add(e.cfg.AppealTerms)
	if err != nil {
		return nil, err
	}
	r := &Round{
		ID:              id,
		DraftTerm:       draftTerm,
		CommitEndTerm:   commitEnd,
		RevealEndTerm:   revealEnd,
		AppealEndTerm:   appealEnd,
		JurorsRequested: jurors,
		Phase:           PhaseDrafting,
		Final:           final,
		slotIndex:       make(map[JurorID]int),
	}
	if final {
		r.Phase = PhaseCommitting
	}
	return r, nil
}

// DraftBatch draws as many still-needed slots as fit in one batch for the
// dispute's current round. It may be called repeatedly; each call resumes
// from the recorded progress. Once the requested count is reached the round
// opens its ballot and moves to the commit phase.
func (e *Engine) DraftBatch(id DisputeID, now termclock.Term) error {
	d, ok := e.disputes[id]
	if !ok {
		return fmt.Errorf("dispute %d: %w", id, ErrDisputeNotFound)
	}
	r := d.latest()
	if r.Phase != PhaseDrafting {
		return fmt.Errorf("dispute %d round %d is %s, not drafting: %w", id, r.ID.Number, r.Phase, ErrInvalidAdjudicationState)
	}
	if now.Before(r.DraftTerm) {
		return fmt.Errorf("draft term %d not reached at term %d: %w", r.DraftTerm, now, ErrInvalidAdjudicationState)
	}

	total := e.tree.TotalAt(r.DraftTerm)
	need := r.JurorsRequested - r.JurorsDrafted
	batch := need
	if batch > e.cfg.DraftBatchSize {
		batch = e.cfg.DraftBatchSize
	}
	// Capped or under-staked draws are redrawn with fresh nonces, within a
	// fixed attempt budget so one call's work stays bounded.
	budget := batch + e.cfg.DraftBatchSize

	var drafted []JurorID
	pending := make(map[JurorID]uint64)
	attempts := uint64(0)
	for uint64(len(drafted)) < batch && attempts < budget {
		k := batch - uint64(len(drafted))
		if k > budget-attempts {
			k = budget - attempts
		}
		targets := make([]stake.Weight, 0, k)
		for i := uint64(0); i < k; i++ {
			target, ok := drawTarget(d.seed, r.ID, r.draftNonce+attempts+i, total)
			if !ok {
				return fmt.Errorf("dispute %d has no stake to draft from: %w", id, sumtree.ErrSearchOutOfBounds)
			}
			targets = append(targets, target)
		}
		attempts += k
		matches, err := e.tree.Search(targets, r.DraftTerm)
		if err != nil {
			return fmt.Errorf("draft dispute %d: %w", id, err)
		}
		for _, m := range matches {
			juror, ok := e.jurors[m.Key]
			if !ok {
				return fmt.Errorf("leaf %d has no juror: %w", m.Key, ErrUnknownJuror)
			}
			if m.Value.Cmp(e.cfg.MinActiveStake) < 0 {
				e.log.Debug().Stringer("juror", juror).Msg("draw skipped, stake below minimum")
				continue
			}
			held := r.slotCount(juror) + pending[juror]
			if e.cfg.MaxSlotsPerJuror > 0 && held >= e.cfg.MaxSlotsPerJuror {
				e.log.Debug().Stringer("juror", juror).Msg("draw skipped, slot cap reached")
				continue
			}
			pending[juror]++
			drafted = append(drafted, juror)
		}
	}

	completing := r.JurorsDrafted+uint64(len(drafted)) == r.JurorsRequested
	if completing {
		if err := e.votes.CreateVote(r.ID, e.cfg.VoteOutcomes); err != nil {
			return fmt.Errorf("draft dispute %d: create vote: %w", id, err)
		}
	}
	if err := e.record(Op{Kind: OpDraftBatch, Dispute: id, Round: r.ID.Number, Term: now}); err != nil {
		return err
	}

	r.draftNonce += attempts
	for _, juror := range drafted {
		r.addSlot(juror)
		r.JurorsDrafted++
		e.log.Info().Uint64("dispute", uint64(id)).Uint64("round", r.ID.Number).
			Stringer("juror", juror).Msg("juror drafted")
	}
	if completing {
		r.Phase = PhaseCommitting
		e.log.Info().Uint64("dispute", uint64(id)).Uint64("round", r.ID.Number).
			Msg("draft complete, committing")
	}
	return nil
}

// Appeal escalates the dispute's latest round, spawning the next round with
// the doubled-plus-one juror count. When the new round number reaches the
// configured maximum it is marked final: drafting is skipped and every
// sufficiently staked participant votes with their live stake.
func (e *Engine) Appeal(id DisputeID, roundNumber uint64, now termclock.Term) error {
	d, ok := e.disputes[id]
	if !ok {
		return fmt.Errorf("dispute %d: %w", id, ErrDisputeNotFound)
	}
	r := d.latest()
	if roundNumber != r.ID.Number {
		return fmt.Errorf("round %d is not the latest round %d: %w", roundNumber, r.ID.Number, ErrInvalidAdjudicationState)
	}
	if r.Final {
		return fmt.Errorf("round %d is final: %w", roundNumber, ErrInvalidAdjudicationState)
	}
	if r.Phase != PhaseAppealable {
		return fmt.Errorf("round %d is %s, not appealable: %w", roundNumber, r.Phase, ErrInvalidAdjudicationState)
	}
	if !now.Before(r.AppealEndTerm) {
		return fmt.Errorf("appeal window ended at term %d: %w", r.AppealEndTerm, ErrInvalidAdjudicationState)
	}

	doubled, ok := safemath.Mul64(r.JurorsRequested, 2)
	if !ok {
		return fmt.Errorf("appeal round %d: juror count overflow", roundNumber)
	}
	nextCount, ok := safemath.Add64(doubled, 1)
	if !ok {
		return fmt.Errorf("appeal round %d: juror count overflow", roundNumber)
	}
	draftTerm, err := now.Add(e.cfg.DraftTermOffset)
	if err != nil {
		return fmt.Errorf("appeal round %d: %w", roundNumber, err)
	}

	nextNumber := roundNumber + 1
	final := nextNumber >= e.cfg.MaxRounds
	next, err := e.newRound(RoundID{Dispute: id, Number: nextNumber}, draftTerm, nextCount, final)
	if err != nil {
		return fmt.Errorf("appeal round %d: %w", roundNumber, err)
	}
	if final {
		if err := e.votes.CreateVote(next.ID, e.cfg.VoteOutcomes); err != nil {
			return fmt.Errorf("appeal round %d: create vote: %w", roundNumber, err)
		}
	}
	if err := e.record(Op{Kind: OpAppeal, Dispute: id, Round: roundNumber, Term: now}); err != nil {
		return err
	}

	r.Phase = PhaseAppealed
	d.Rounds = append(d.Rounds, next)
	e.log.Info().Uint64("dispute", uint64(id)).Uint64("round", nextNumber).
		Uint64("jurors", nextCount).Bool("final", final).Msg("appeal accepted")
	return nil
}

// CanAdvance reports whether the dispute's latest round has reached its next
// phase boundary at the given term.
func (e *Engine) CanAdvance(id DisputeID, now termclock.Term) (bool, error) {
	d, ok := e.disputes[id]
	if !ok {
		return false, fmt.Errorf("dispute %d: %w", id, ErrDisputeNotFound)
	}
	r := d.latest()
	switch r.Phase {
	case PhaseCommitting:
		return !now.Before(r.CommitEndTerm), nil
	case PhaseRevealing:
		return !now.Before(r.RevealEndTerm), nil
	case PhaseAppealable:
		return !now.Before(r.AppealEndTerm), nil
	default:
		return false, nil
	}
}

// Advance moves the dispute's latest round through one term-driven phase
// transition. Passing the end of the appeal window closes the round and
// records the winning outcome from the voting subsystem.
func (e *Engine) Advance(id DisputeID, now termclock.Term) error {
	ok, err := e.CanAdvance(id, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dispute %d cannot advance at term %d: %w", id, now, ErrInvalidAdjudicationState)
	}
	r := e.disputes[id].latest()

	var next Phase
	outcome := r.Outcome
	switch r.Phase {
	case PhaseCommitting:
		next = PhaseRevealing
	case PhaseRevealing:
		next = PhaseAppealable
	case PhaseAppealable:
		won, err := e.votes.WinningOutcome(r.ID)
		if err != nil {
			return fmt.Errorf("advance dispute %d: winning outcome: %w", id, err)
		}
		next = PhaseClosed
		outcome = won
	}
	if err := e.record(Op{Kind: OpAdvance, Dispute: id, Round: r.ID.Number, Term: now}); err != nil {
		return err
	}

	r.Phase = next
	r.Outcome = outcome
	e.log.Info().Uint64("dispute", uint64(id)).Uint64("round", r.ID.Number).
		Stringer("phase", next).Msg("phase advanced")
	return nil
}

// FinalRoundWeight returns the juror's voting weight in the dispute's final
// round: their live stake at the round's draft term. Jurors below the
// minimum are not eligible.
func (e *Engine) FinalRoundWeight(id DisputeID, juror JurorID) (stake.Weight, error) {
	d, ok := e.disputes[id]
	if !ok {
		return stake.Weight{}, fmt.Errorf("dispute %d: %w", id, ErrDisputeNotFound)
	}
	r := d.latest()
	if !r.Final {
		return stake.Weight{}, fmt.Errorf("round %d is not final: %w", r.ID.Number, ErrInvalidAdjudicationState)
	}
	key, ok := e.keys[juror]
	if !ok {
		return stake.Weight{}, fmt.Errorf("juror %s: %w", juror, ErrUnknownJuror)
	}
	w := e.tree.ValueAt(key, r.DraftTerm)
	if w.Cmp(e.cfg.MinActiveStake) < 0 {
		return stake.Weight{}, fmt.Errorf("juror %s stake %s below minimum: %w", juror, w, ErrInsufficientStake)
	}
	return w, nil
}

// Round returns a copy of the identified round.
func (e *Engine) Round(id DisputeID, number uint64) (Round, error) {
	d, ok := e.disputes[id]
	if !ok {
		return Round{}, fmt.Errorf("dispute %d: %w", id, ErrDisputeNotFound)
	}
	if number >= uint64(len(d.Rounds)) {
		return Round{}, fmt.Errorf("dispute %d has no round %d: %w", id, number, ErrInvalidAdjudicationState)
	}
	return d.Rounds[number].clone(), nil
}

// LatestRound returns a copy of the dispute's current round.
func (e *Engine) LatestRound(id DisputeID) (Round, error) {
	d, ok := e.disputes[id]
	if !ok {
		return Round{}, fmt.Errorf("dispute %d: %w", id, ErrDisputeNotFound)
	}
	return d.latest().clone(), nil
}
