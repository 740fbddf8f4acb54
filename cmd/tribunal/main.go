package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quorumnet/tribunal/internal/court"
	"github.com/quorumnet/tribunal/internal/stake"
	"github.com/quorumnet/tribunal/internal/store"
	"github.com/quorumnet/tribunal/internal/termclock"
	"github.com/quorumnet/tribunal/pkg/db"
	"github.com/quorumnet/tribunal/pkg/db/pebble"
	"github.com/quorumnet/tribunal/pkg/log"
)

// demoVoting is a stand-in for the external commit-reveal subsystem: it
// accepts every ballot and always reports outcome 1.
type demoVoting struct {
	ballots map[court.RoundID]uint8
}

func (v *demoVoting) CreateVote(round court.RoundID, outcomes uint8) error {
	v.ballots[round] = outcomes
	return nil
}

func (v *demoVoting) VoterWeight(round court.RoundID, juror court.JurorID) (stake.Weight, error) {
	return stake.FromUint64(1), nil
}

func (v *demoVoting) WinningOutcome(round court.RoundID) (uint8, error) {
	return 1, nil
}

// main replays the ledger (if any) and runs one dispute end to end.
// go run main.go -db /tmp/tribunal
func main() {
	dbPath := flag.String("db", "", "ledger path, empty for in-memory")
	loglevel := flag.String("loglevel", "info", "log level")
	flag.Parse()

	level, err := log.ParseLogLevel(*loglevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})

	var kv db.KVStore
	if *dbPath == "" {
		kv, err = pebble.NewMemKVStore()
	} else {
		kv, err = pebble.NewKVStore(*dbPath)
	}
	if err != nil {
		log.Root.Fatal().Err(err).Msg("open kv store")
	}
	defer kv.Close() //nolint:errcheck // process exit

	ledger, err := store.NewLedger(kv)
	if err != nil {
		log.Root.Fatal().Err(err).Msg("open ledger")
	}

	votes := &demoVoting{ballots: make(map[court.RoundID]uint8)}
	engine, err := court.NewEngine(court.DefaultConfig(), votes, court.NewBlakeSeeder([32]byte{1}))
	if err != nil {
		log.Root.Fatal().Err(err).Msg("create engine")
	}
	if err := ledger.ReplayInto(engine); err != nil {
		log.Root.Fatal().Err(err).Msg("replay ledger")
	}
	engine.SetJournal(ledger)

	if ledger.Len() > 0 {
		round, err := engine.LatestRound(1)
		if err != nil {
			log.Root.Fatal().Err(err).Msg("read replayed round")
		}
		fmt.Printf("replayed %d ops; dispute 1 round %d is %s\n", ledger.Len(), round.ID.Number, round.Phase)
		return
	}

	must := func(err error) {
		if err != nil {
			log.Root.Fatal().Err(err).Msg("demo step failed")
		}
	}

	for i := byte(1); i <= 7; i++ {
		var juror court.JurorID
		juror[0] = i
		must(engine.RegisterJuror(juror, 0, stake.FromUint64(1000)))
	}
	must(engine.OpenDispute(1, 1, 3))
	must(engine.DraftBatch(1, 1))

	round, err := engine.LatestRound(1)
	must(err)
	must(ledger.PutRound(round))
	fmt.Printf("dispute 1 round 0: phase=%s drafted=%d\n", round.Phase, round.JurorsDrafted)

	now := round.RevealEndTerm
	must(engine.Advance(1, now)) // committing -> revealing
	must(engine.Advance(1, now)) // revealing -> appealable
	must(engine.Appeal(1, 0, now))

	round, err = engine.LatestRound(1)
	must(err)
	must(ledger.PutRound(round))
	fmt.Printf("dispute 1 round %d: phase=%s jurors=%d final=%v at term %d\n",
		round.ID.Number, round.Phase, round.JurorsRequested, round.Final, uint64(termclock.CurrentTerm()))
}
