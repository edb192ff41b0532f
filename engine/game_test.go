package engine

import (
	"testing"

	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

func newTestHand(t *testing.T, stacks []PlayerStack, opts Options) *models.Hand {
	t.Helper()
	h, err := NewHand(stacks, opts)
	if err != nil {
		t.Fatalf("NewHand failed: %v", err)
	}
	return h
}

func totalChips(h *models.Hand) money.Amount {
	var total money.Amount
	for _, p := range h.Players {
		total += p.Stack + p.CommittedTotal
	}
	return total
}

func TestNewHand_RequiresTwoFundedPlayers(t *testing.T) {
	_, err := NewHand([]PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 0},
	}, Options{SmallBlind: 10, BigBlind: 20})
	if err != ErrNotEnoughPlayers {
		t.Errorf("Expected ErrNotEnoughPlayers, got %v", err)
	}
}

func TestNewHand_BlindsAndOpeningAction(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
		{Name: "C", Stack: 1000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 7})

	if h.Players[1].StreetCommit != 10 {
		t.Errorf("Small blind should post 10, got %d", h.Players[1].StreetCommit)
	}
	if h.Players[2].StreetCommit != 20 {
		t.Errorf("Big blind should post 20, got %d", h.Players[2].StreetCommit)
	}
	if h.CurrentBet != 20 {
		t.Errorf("Current bet should equal the big blind, got %d", h.CurrentBet)
	}
	if h.Pot != 30 {
		t.Errorf("Pot should be 30, got %d", h.Pot)
	}
	if h.ActingIndex != 0 {
		t.Errorf("First to act should be seat 0, got %d", h.ActingIndex)
	}
	for _, p := range h.Players {
		if len(p.Hole) != 2 {
			t.Errorf("Player %s should hold two cards, got %d", p.Name, len(p.Hole))
		}
	}
}

func TestNewHand_ShortBlindIsForcedAllIn(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
		{Name: "C", Stack: 5},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 3})

	c := h.Players[2]
	if !c.AllIn {
		t.Error("Big blind with 5 cents should be all-in")
	}
	if c.StreetCommit != 5 {
		t.Errorf("Blind must be capped at the stack, got %d", c.StreetCommit)
	}
	if h.CurrentBet != 5 {
		t.Errorf("Current bet tracks the big blind's actual post, got %d", h.CurrentBet)
	}
}

func TestApply_OutOfTurnRejected(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
		{Name: "C", Stack: 1000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 7})

	ok, msg := Apply(h, "B", models.Action{Kind: models.ActionCall})
	if ok {
		t.Fatal("Out of turn action must be rejected")
	}
	if msg != "Not your turn." {
		t.Errorf("Unexpected message: %q", msg)
	}
}

func TestApply_CannotCheckFacingBet(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 7})

	actor := h.ActingPlayer().Name
	ok, msg := Apply(h, actor, models.Action{Kind: models.ActionCheck})
	if ok {
		t.Fatal("Check facing the blind must be rejected")
	}
	if msg != "Cannot check facing a bet." {
		t.Errorf("Unexpected message: %q", msg)
	}
}

func TestApply_HeadsUpAllInRunsOutBoard(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 11})

	// Heads up: B posted the small blind and acts first preflop.
	if got := h.ActingPlayer().Name; got != "B" {
		t.Fatalf("Expected B to act first, got %s", got)
	}
	if ok, msg := Apply(h, "B", models.Action{Kind: models.ActionAllIn}); !ok {
		t.Fatalf("All-in rejected: %s", msg)
	}
	if ok, msg := Apply(h, "A", models.Action{Kind: models.ActionCall}); !ok {
		t.Fatalf("Call rejected: %s", msg)
	}

	if h.Street != models.StreetFinished {
		t.Fatalf("Hand should be finished, got %s", h.Street)
	}
	if len(h.Board) != 5 {
		t.Errorf("Board should be run out to 5 cards, got %d", len(h.Board))
	}
	res := h.Result
	if res == nil {
		t.Fatal("Expected a result")
	}
	var won money.Amount
	for _, w := range res.Winnings {
		won += w
	}
	var stacks money.Amount
	for _, p := range h.Players {
		stacks += p.Stack
	}
	if stacks != 2000 {
		t.Errorf("Chips must be conserved, got %d", stacks)
	}
	if won != 2000 && res.Type == models.ResultShowdown {
		// A split pot still pays out the full 2000.
		t.Errorf("Expected 2000 paid out, got %d", won)
	}
}

func TestApply_RaiseFlowAdvancesStreets(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 10000},
		{Name: "B", Stack: 10000},
		{Name: "C", Stack: 10000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 5})

	if ok, msg := Apply(h, "A", models.Action{Kind: models.ActionRaise, Amount: 60}); !ok {
		t.Fatalf("Raise rejected: %s", msg)
	}
	if h.MinRaise != 40 {
		t.Errorf("Full raise should set the increment to 40, got %d", h.MinRaise)
	}
	if ok, msg := Apply(h, "B", models.Action{Kind: models.ActionCall}); !ok {
		t.Fatalf("B call rejected: %s", msg)
	}
	if ok, msg := Apply(h, "C", models.Action{Kind: models.ActionCall}); !ok {
		t.Fatalf("C call rejected: %s", msg)
	}

	if h.Street != models.StreetFlop {
		t.Fatalf("Expected flop, got %s", h.Street)
	}
	if len(h.Board) != 3 {
		t.Errorf("Flop should have 3 cards, got %d", len(h.Board))
	}
	if h.CurrentBet != 0 {
		t.Errorf("Current bet must reset between streets, got %d", h.CurrentBet)
	}
	if h.MinRaise != 20 {
		t.Errorf("Min raise must reset to the table increment, got %d", h.MinRaise)
	}
	if h.Pot != 180 {
		t.Errorf("Pot should hold 3x60, got %d", h.Pot)
	}
	// Postflop action starts left of the dealer.
	if got := h.ActingPlayer().Name; got != "B" {
		t.Errorf("Expected B to open the flop, got %s", got)
	}
}

func midStreetHand(stacks []money.Amount) *models.Hand {
	h := &models.Hand{
		Street:        models.StreetFlop,
		BigBlind:      20,
		SmallBlind:    10,
		TableMinRaise: 20,
		MinRaise:      20,
		DealerIndex:   2,
		Deck:          models.NewSeededDeck(9),
		ActingIndex:   0,
	}
	for i, s := range stacks {
		name := string(rune('A' + i))
		h.Players = append(h.Players, &models.HandPlayer{Name: name, Stack: s, CommittedTotal: 100})
	}
	board, _ := h.Deck.DealMultiple(3)
	h.Board = board
	h.PendingToAct = eligibleToAct(h)
	h.Pot = totalCommitted(h)
	return h
}

func TestApply_ShortAllInDoesNotReopenAction(t *testing.T) {
	h := midStreetHand([]money.Amount{1000, 150, 1000})

	if ok, msg := Apply(h, "A", models.Action{Kind: models.ActionBet, Amount: 100}); !ok {
		t.Fatalf("Bet rejected: %s", msg)
	}
	if h.MinRaise != 100 {
		t.Fatalf("Bet of 100 should set the increment, got %d", h.MinRaise)
	}

	// B's all-in of 150 is a short raise: it moves the price but the
	// increment stands and A does not get to act again this street.
	if ok, msg := Apply(h, "B", models.Action{Kind: models.ActionAllIn}); !ok {
		t.Fatalf("All-in rejected: %s", msg)
	}
	if h.CurrentBet != 150 {
		t.Errorf("Current bet should move to 150, got %d", h.CurrentBet)
	}
	if h.MinRaise != 100 {
		t.Errorf("Short all-in must not reset the increment, got %d", h.MinRaise)
	}
	if h.IsPending("A") {
		t.Error("Short all-in must not reopen action for A")
	}

	if ok, msg := Apply(h, "C", models.Action{Kind: models.ActionCall}); !ok {
		t.Fatalf("Call rejected: %s", msg)
	}
	if h.Street != models.StreetTurn {
		t.Errorf("Street should advance once the call closes action, got %s", h.Street)
	}
}

func TestApply_FullAllInReopensAction(t *testing.T) {
	h := midStreetHand([]money.Amount{1000, 400, 1000})

	if ok, msg := Apply(h, "A", models.Action{Kind: models.ActionBet, Amount: 100}); !ok {
		t.Fatalf("Bet rejected: %s", msg)
	}
	if ok, msg := Apply(h, "B", models.Action{Kind: models.ActionAllIn}); !ok {
		t.Fatalf("All-in rejected: %s", msg)
	}
	// 400 over a bet of 100 is a full raise of 300.
	if h.MinRaise != 300 {
		t.Errorf("Full all-in raise should reset the increment, got %d", h.MinRaise)
	}
	if !h.IsPending("A") {
		t.Error("Full raise must reopen action for A")
	}
}

func TestLegal_FacingBet(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
		{Name: "C", Stack: 1000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 7})

	legal := Legal(h, "A")
	if !legal.Has(models.ActionCall) || !legal.Has(models.ActionRaise) || !legal.Has(models.ActionFold) {
		t.Errorf("Expected fold/call/raise available, got %v", legal.Kinds)
	}
	if legal.Has(models.ActionCheck) {
		t.Error("Check must not be offered facing the blind")
	}
	if legal.ToCall != 20 {
		t.Errorf("To call should be 20, got %d", legal.ToCall)
	}
	if legal.MinRaiseTo != 40 {
		t.Errorf("Min raise-to should be 40, got %d", legal.MinRaiseTo)
	}
	if legal.MaxRaiseTo != 1000 {
		t.Errorf("Max raise-to should be the full stack, got %d", legal.MaxRaiseTo)
	}

	if got := Legal(h, "B"); len(got.Kinds) != 0 {
		t.Errorf("Non-acting player should have no actions, got %v", got.Kinds)
	}
}

func TestForfeit_LeavesUncontestedPot(t *testing.T) {
	h := newTestHand(t, []PlayerStack{
		{Name: "A", Stack: 1000},
		{Name: "B", Stack: 1000},
		{Name: "C", Stack: 1000},
	}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: 0, Seed: 7})

	Forfeit(h, "A")
	Forfeit(h, "B")

	if h.Street != models.StreetFinished {
		t.Fatalf("Hand should finish uncontested, got %s", h.Street)
	}
	if h.Result == nil || h.Result.Type != models.ResultUncontested {
		t.Fatal("Expected uncontested result")
	}
	if h.Result.Winnings["C"] != 30 {
		t.Errorf("C should collect the blinds, got %d", h.Result.Winnings["C"])
	}
	if totalChips(h) != 3000 {
		t.Errorf("Chips must be conserved, got %d", totalChips(h))
	}
}

func TestApply_ChipConservationAcrossSeeds(t *testing.T) {
	for seed := int64(1); seed <= 15; seed++ {
		h := newTestHand(t, []PlayerStack{
			{Name: "A", Stack: 2000},
			{Name: "B", Stack: 1500},
			{Name: "C", Stack: 1000},
			{Name: "D", Stack: 800},
		}, Options{SmallBlind: 10, BigBlind: 20, DealerIndex: int(seed) % 4, Seed: seed})

		for steps := 0; steps < 200 && !h.Finished(); steps++ {
			actor := h.ActingPlayer()
			if actor == nil {
				break
			}
			legal := Legal(h, actor.Name)
			var act models.Action
			switch {
			case legal.Has(models.ActionCall):
				act = models.Action{Kind: models.ActionCall}
			case legal.Has(models.ActionCheck):
				act = models.Action{Kind: models.ActionCheck}
			default:
				act = models.Action{Kind: models.ActionFold}
			}
			if ok, msg := Apply(h, actor.Name, act); !ok {
				t.Fatalf("seed %d: action rejected: %s", seed, msg)
			}
		}

		if !h.Finished() {
			t.Fatalf("seed %d: hand did not finish", seed)
		}
		var stacks money.Amount
		for _, p := range h.Players {
			stacks += p.Stack
		}
		if stacks != 5300 {
			t.Errorf("seed %d: expected 5300 total chips, got %d", seed, stacks)
		}
	}
}
