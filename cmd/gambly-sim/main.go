// gambly-sim drives the whole stack headlessly: it seeds a bot-only
// poker table and a scripted blackjack table over a real store
// backend and plays a configurable number of hands, logging every
// settlement. Useful for soak-testing the engines and the
// persistence gateway without any UI.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iek-bit/Gambly/blackjack"
	"github.com/iek-bit/Gambly/lobby"
	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
	"github.com/iek-bit/Gambly/store"
)

var simPlayers = []string{"sim_alice", "sim_bruce"}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("[SIM] bad configuration: %v", err)
	}

	st := buildStore(cfg)
	runID := uuid.New().String()[:8]
	log.Printf("[SIM] run %s starting (backend=%s)", runID, cfg.StoreBackend)

	ctx := context.Background()
	pokerMgr := lobby.NewManager()
	bjMgr := blackjack.NewManager()

	pokerTableID, bjTableID := seedTables(ctx, st, pokerMgr, bjMgr, cfg)

	for i := 0; i < cfg.PokerHands; i++ {
		playPokerHand(ctx, st, pokerMgr, pokerTableID)
	}
	for i := 0; i < cfg.BlackjackRounds; i++ {
		playBlackjackRound(ctx, st, bjMgr, bjTableID)
	}

	reportBalances(ctx, st)
	log.Printf("[SIM] run %s finished", runID)
}

func buildStore(cfg Config) store.Store {
	switch cfg.StoreBackend {
	case "file":
		return store.NewFileStore(cfg.StatePath)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return store.NewRedisStore(client, "gambly:state")
	default:
		return store.NewMemStore()
	}
}

// seedTables creates the accounts and both tables in one session.
func seedTables(ctx context.Context, s store.Store, pokerMgr *lobby.Manager, bjMgr *blackjack.Manager, cfg Config) (pokerID, bjID int) {
	err := store.Update(ctx, s, func(st *models.State) bool {
		now := time.Now().Unix()
		for _, name := range simPlayers {
			if _, ok := st.Accounts[name]; !ok {
				st.Accounts[name] = models.NewAccount(money.FromDecimal(1000))
			}
			st.MarkActive(name, now)
		}

		pokerTable := pokerMgr.CreateTable(st, "Sim Poker", models.PokerTableConfig{})
		pokerID = pokerTable.ID
		if ok, msg := pokerMgr.AddBots(st, pokerID, cfg.PokerBots); !ok {
			log.Fatalf("[SIM] seeding bots failed: %s", msg)
		}

		bjTable := bjMgr.CreateTable(st, "Sim Blackjack", 0, money.FromDecimal(5), nil, false, "")
		bjID = bjTable.ID
		for _, name := range simPlayers {
			if ok, msg := bjMgr.Join(st, bjID, name, ""); !ok {
				log.Fatalf("[SIM] blackjack join failed: %s", msg)
			}
		}
		return true
	})
	if err != nil {
		log.Fatalf("[SIM] seeding failed: %v", err)
	}
	return pokerID, bjID
}

// playPokerHand starts one hand on the bot table; with no humans
// seated the bot drive settles it inside the same call.
func playPokerHand(ctx context.Context, s store.Store, mgr *lobby.Manager, tableID int) {
	err := store.Update(ctx, s, func(st *models.State) bool {
		ok, msg := mgr.StartHand(st, tableID)
		if !ok {
			log.Printf("[SIM] poker hand skipped: %s", msg)
			return false
		}
		for _, table := range st.Poker.Tables {
			if table.ID != tableID {
				continue
			}
			for _, seat := range table.Seats {
				log.Printf("[SIM] poker %s net $%s (stack $%s)", seat.Name, seat.LastNet, seat.Stack)
			}
		}
		return true
	})
	if err != nil {
		log.Fatalf("[SIM] poker hand failed: %v", err)
	}
}

// playBlackjackRound bets the table minimum for every sim player and
// plays a hit-below-17 policy to settlement.
func playBlackjackRound(ctx context.Context, s store.Store, mgr *blackjack.Manager, tableID int) {
	err := store.Update(ctx, s, func(st *models.State) bool {
		now := time.Now().Unix()
		for _, name := range simPlayers {
			st.MarkActive(name, now)
		}
		table := findBlackjackTable(st, tableID)
		if table == nil {
			log.Printf("[SIM] blackjack table %d is gone", tableID)
			return false
		}
		for _, name := range simPlayers {
			if ok, msg := mgr.SetBet(st, tableID, name, table.MinBet); !ok {
				log.Printf("[SIM] bet rejected for %s: %s", name, msg)
				return false
			}
		}
		for _, name := range simPlayers {
			if ok, msg, _ := mgr.SetReady(st, tableID, name, true); !ok {
				log.Printf("[SIM] ready rejected for %s: %s", name, msg)
				return false
			}
		}

		for guard := 0; guard < 50 && table.InProgress; guard++ {
			if table.TurnIndex >= len(table.TurnOrder) {
				break
			}
			turn := table.TurnOrder[table.TurnIndex]
			state := table.States[turn]
			act := "stand"
			if state != nil && blackjack.HandTotal(state.Cards) < 17 {
				act = "hit"
			}
			if ok, msg := mgr.Action(st, tableID, turn, act); !ok {
				log.Printf("[SIM] blackjack action rejected for %s: %s", turn, msg)
				break
			}
		}

		for _, name := range simPlayers {
			if state, ok := table.States[name]; ok && state.Result != "" {
				log.Printf("[SIM] blackjack %s: %s (payout $%s)", name, state.Result, state.Payout)
			}
		}
		return true
	})
	if err != nil {
		log.Fatalf("[SIM] blackjack round failed: %v", err)
	}
}

func findBlackjackTable(st *models.State, id int) *models.BlackjackTable {
	for _, t := range st.Blackjack.Tables {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func reportBalances(ctx context.Context, s store.Store) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		log.Printf("[SIM] snapshot failed: %v", err)
		return
	}
	for _, name := range simPlayers {
		account, ok := snap.Accounts[name]
		if !ok {
			continue
		}
		log.Printf("[SIM] %s final balance $%s (rounds %d, won %d, net $%s)",
			name, account.Balance,
			account.Stats.RoundsPlayed, account.Stats.RoundsWon, account.Stats.TotalNet)
	}
}
