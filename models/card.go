package models

import (
	"fmt"
	"math/rand"
	"time"
)

type Suit string
type Rank string

const (
	Hearts   Suit = "h"
	Diamonds Suit = "d"
	Clubs    Suit = "c"
	Spades   Suit = "s"
)

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "T"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

func (c Card) Value() int {
	switch c.Rank {
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	case Ten:
		return 10
	case Jack:
		return 11
	case Queen:
		return 12
	case King:
		return 13
	case Ace:
		return 14
	}
	return 0
}

// Deck keeps only its remaining cards so it survives JSON
// persistence; shuffling uses a throwaway source.
type Deck struct {
	Cards []Card `json:"cards"`
}

func NewDeck() *Deck {
	return NewSeededDeck(time.Now().UnixNano())
}

// NewSeededDeck builds a full shuffled deck from a fixed seed, which
// makes dealt hands reproducible in tests.
func NewSeededDeck(seed int64) *Deck {
	deck := &Deck{Cards: make([]Card, 0, 52)}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck.Cards = append(deck.Cards, Card{Rank: rank, Suit: suit})
		}
	}
	deck.shuffle(rand.New(rand.NewSource(seed)))
	return deck
}

func (d *Deck) shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

func (d *Deck) Deal() (Card, error) {
	if len(d.Cards) == 0 {
		return Card{}, fmt.Errorf("deck is empty - no more cards to deal")
	}
	card := d.Cards[0]
	d.Cards = d.Cards[1:]
	return card, nil
}

func (d *Deck) DealMultiple(n int) ([]Card, error) {
	if len(d.Cards) < n {
		return nil, fmt.Errorf("not enough cards in deck: requested %d, available %d", n, len(d.Cards))
	}
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		card, err := d.Deal()
		if err != nil {
			return nil, err
		}
		cards[i] = card
	}
	return cards, nil
}

// Burn discards the top card before community cards are dealt.
func (d *Deck) Burn() error {
	_, err := d.Deal()
	return err
}

func (d *Deck) CardsRemaining() int {
	return len(d.Cards)
}
