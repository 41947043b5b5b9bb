package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"tictactoe/internal/domain"
	"tictactoe/internal/session"
)

type fakeCreator struct {
	mu    sync.Mutex
	pairs [][2]int64
	fail  error
}

func (f *fakeCreator) CreateMatch(_ context.Context, x, o int64) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.pairs = append(f.pairs, [2]int64{x, o})
	return domain.NewGame(fmt.Sprintf("g%d", len(f.pairs)), x, o), nil
}

type note struct {
	to      int64
	event   string
	payload any
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (f *fakeNotifier) SendToParticipant(id int64, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note{id, event, payload})
}

func TestQueuePairsOldestFirst(t *testing.T) {
	creator, notifier := &fakeCreator{}, &fakeNotifier{}
	q := NewQueue(creator, notifier)
	ctx := context.Background()

	res, err := q.Join(ctx, 1)
	if err != nil || res.Status != StatusWaiting {
		t.Fatalf("A join = %+v, %v; want waiting", res, err)
	}

	res, err = q.Join(ctx, 2)
	if err != nil {
		t.Fatalf("B join: %v", err)
	}
	if res.Status != StatusMatched || res.GameID == "" || res.Game == nil {
		t.Fatalf("B join = %+v; want matched", res)
	}
	if *res.Game.Players.X != 1 || *res.Game.Players.O != 2 {
		t.Fatalf("slots = %+v; want X=1 O=2", res.Game.Players)
	}
	if res.Game.Status != domain.StatusInProgress {
		t.Fatalf("status = %s; want in_progress", res.Game.Status)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("notes = %d; want 1", len(notifier.notes))
	}
	n := notifier.notes[0]
	if n.to != 1 || n.event != session.EventMatchFound {
		t.Fatalf("note = %+v; want match_found to 1", n)
	}
	if p := n.payload.(session.MatchFoundPayload); p.GameID != res.GameID || p.Status != "matched" {
		t.Fatalf("match_found payload = %+v", p)
	}
	if q.Len() != 0 {
		t.Fatalf("queue len = %d; want 0", q.Len())
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	creator := &fakeCreator{}
	q := NewQueue(creator, &fakeNotifier{})
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3, 4} {
		if _, err := q.Join(ctx, id); err != nil {
			t.Fatalf("join %d: %v", id, err)
		}
	}
	// 1 waits, 2 matches 1, 3 waits, 4 matches 3
	want := [][2]int64{{1, 2}, {3, 4}}
	if len(creator.pairs) != len(want) {
		t.Fatalf("pairs = %v; want %v", creator.pairs, want)
	}
	for i := range want {
		if creator.pairs[i] != want[i] {
			t.Fatalf("pairs = %v; want %v", creator.pairs, want)
		}
	}
}

func TestQueueRejoinDoesNotSelfMatch(t *testing.T) {
	creator := &fakeCreator{}
	q := NewQueue(creator, &fakeNotifier{})
	ctx := context.Background()

	_, _ = q.Join(ctx, 1)
	res, err := q.Join(ctx, 1)
	if err != nil || res.Status != StatusWaiting {
		t.Fatalf("rejoin = %+v, %v; want waiting", res, err)
	}
	if q.Len() != 1 || len(creator.pairs) != 0 {
		t.Fatalf("len=%d pairs=%v; want one ticket, no pairs", q.Len(), creator.pairs)
	}
}

func TestQueueLeave(t *testing.T) {
	q := NewQueue(&fakeCreator{}, &fakeNotifier{})
	ctx := context.Background()

	_, _ = q.Join(ctx, 1)
	if !q.Waiting(1) {
		t.Fatalf("1 not waiting after join")
	}
	q.Leave(1)
	q.Leave(42)
	if q.Waiting(1) || q.Len() != 0 {
		t.Fatalf("ticket survived leave")
	}

	res, _ := q.Join(ctx, 2)
	if res.Status != StatusWaiting {
		t.Fatalf("2 matched a participant who left")
	}
}

func TestQueueCreateFailureKeepsWaiter(t *testing.T) {
	creator := &fakeCreator{}
	q := NewQueue(creator, &fakeNotifier{})
	ctx := context.Background()

	_, _ = q.Join(ctx, 1)
	creator.fail = errors.New("db down")
	if _, err := q.Join(ctx, 2); err == nil {
		t.Fatalf("expected error from failing creator")
	}
	if !q.Waiting(1) {
		t.Fatalf("waiter dropped after failed match")
	}

	creator.fail = nil
	res, err := q.Join(ctx, 2)
	if err != nil || res.Status != StatusMatched {
		t.Fatalf("retry = %+v, %v; want matched", res, err)
	}
}

func TestQueueConcurrentJoinsPairEveryone(t *testing.T) {
	creator := &fakeCreator{}
	q := NewQueue(creator, &fakeNotifier{})

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := q.Join(context.Background(), id); err != nil {
				t.Errorf("join %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if q.Len() != 0 || len(creator.pairs) != 10 {
		t.Fatalf("len=%d pairs=%d; want 0 and 10", q.Len(), len(creator.pairs))
	}
	seen := map[int64]bool{}
	for _, p := range creator.pairs {
		for _, id := range p {
			if seen[id] {
				t.Fatalf("participant %d matched twice", id)
			}
			seen[id] = true
		}
	}
}
