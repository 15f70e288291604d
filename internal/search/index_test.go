package search

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/observe"
)

var corpus = []domain.Breed{
	{ID: 1, Name: "Affenpinscher", Temperament: "Stubborn, Curious, Playful, Adventurous", BredFor: "Small rodent hunting", BreedGroup: "Toy"},
	{ID: 2, Name: "Afghan Hound", Temperament: "Aloof, Clownish, Dignified, Independent", BredFor: "Coursing and hunting", BreedGroup: "Hound", Origin: "Afghanistan"},
	{ID: 3, Name: "Bichon Frisé", Temperament: "Feisty, Affectionate, Cheerful, Playful", BreedGroup: "Non-Sporting"},
	{ID: 4, Name: "Border Collie", Temperament: "Tenacious, Keen, Energetic, Intelligent", BredFor: "Sheep herder", BreedGroup: "Herding"},
}

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.stopwords != nil || def.maxDocs != 0 || def.prefixBonus != 0.25 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithStopwords([]string{"  And ", "", "The"})(&cfg)
	if _, ok := cfg.stopwords["and"]; !ok {
		t.Fatalf("WithStopwords failed (missing 'and'): %#v", cfg.stopwords)
	}
	cfg2 := def
	WithStopwords(nil)(&cfg2)
	if cfg2.stopwords != nil {
		t.Fatalf("empty stopwords should remain nil")
	}

	WithMaxDocs(2)(&cfg)
	WithMaxDocs(0)(&cfg) // no-op
	if cfg.maxDocs != 2 {
		t.Fatalf("WithMaxDocs: %d", cfg.maxDocs)
	}

	WithPrefixBonus(-1)(&cfg) // no-op
	if cfg.prefixBonus != 0.25 {
		t.Fatalf("negative prefix bonus should be ignored")
	}
	WithPrefixBonus(0)(&cfg)
	if cfg.prefixBonus != 0 {
		t.Fatalf("WithPrefixBonus(0) not applied")
	}
}

func TestTopK_RanksByTemperament(t *testing.T) {
	idx := NewIndex(corpus)
	res := idx.TopK("playful", 5)
	if len(res) != 2 {
		t.Fatalf("expected 2 playful breeds, got %+v", res)
	}
	for _, r := range res {
		if r.ID != 1 && r.ID != 3 {
			t.Fatalf("unexpected match %+v", r)
		}
	}
}

func TestTopK_FoldsDiacriticsAndCase(t *testing.T) {
	idx := NewIndex(corpus)
	res := idx.TopK("BICHON FRISE", 1)
	if len(res) != 1 || res[0].ID != 3 {
		t.Fatalf("expected Bichon Frisé, got %+v", res)
	}
}

func TestTopK_NamePrefix(t *testing.T) {
	idx := NewIndex(corpus)
	res := idx.TopK("coll", 3)
	if len(res) == 0 || res[0].ID != 4 {
		t.Fatalf("expected Border Collie first, got %+v", res)
	}

	noBonus := NewIndex(corpus, WithPrefixBonus(0))
	if got := noBonus.TopK("coll", 3); len(got) != 0 {
		t.Fatalf("without bonus a bare prefix must not match, got %+v", got)
	}
}

func TestTopK_EdgeCases(t *testing.T) {
	idx := NewIndex(corpus, WithStopwords([]string{"and"}))
	if idx.TopK("   ", 3) != nil {
		t.Fatalf("blank query must return nil")
	}
	if idx.TopK("and", 3) != nil {
		t.Fatalf("stop-word-only query must return nil")
	}
	if idx.TopK("zzzz", 3) != nil {
		t.Fatalf("no match must return nil")
	}
	if NewIndex(nil).TopK("hound", 3) != nil {
		t.Fatalf("empty index must return nil")
	}
	if got := idx.TopK("hunting", 0); len(got) != 2 {
		t.Fatalf("k<=0 should default, got %d results", len(got))
	}
}

func TestTopK_DeterministicTies(t *testing.T) {
	twins := []domain.Breed{
		{ID: 9, Name: "Zeta", Temperament: "Calm"},
		{ID: 8, Name: "Alpha", Temperament: "Calm"},
	}
	res := NewIndex(twins).TopK("calm", 2)
	if len(res) != 2 || res[0].Name != "Alpha" || res[1].Name != "Zeta" {
		t.Fatalf("ties must sort by name, got %+v", res)
	}
}

func TestWithMaxDocs_Caps(t *testing.T) {
	if n := NewIndex(corpus, WithMaxDocs(2)).Len(); n != 2 {
		t.Fatalf("expected 2 docs, got %d", n)
	}
}

type staticCorpus struct{ breeds chan []domain.Breed }

func (c staticCorpus) AllBreeds(context.Context) ([]domain.Breed, error) {
	return <-c.breeds, nil
}

func TestLive_RebuildsOnChange(t *testing.T) {
	tr := observe.NewTracker()
	c := staticCorpus{breeds: make(chan []domain.Breed, 2)}
	c.breeds <- corpus[:1]
	c.breeds <- corpus

	l := NewLive(c)
	if l.Len() != 0 || l.TopK("hound", 1) != nil {
		t.Fatalf("new Live index must be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx, tr, "breeds")

	waitLen(t, l, 1)
	tr.Notify("breeds")
	waitLen(t, l, len(corpus))

	if res := l.TopK("hound", 1); len(res) != 1 || res[0].ID != 2 {
		t.Fatalf("expected Afghan Hound, got %+v", res)
	}
}

func waitLen(t *testing.T, l *Live, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("index never reached %d docs (have %d)", n, l.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
