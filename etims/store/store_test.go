package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receipts(prefix string, n int) []model.Receipt {
	out := make([]model.Receipt, n)
	for i := range out {
		out[i] = model.Receipt{ID: fmt.Sprintf("%s-%d", prefix, i), ReceiptNumber: prefix}
	}
	return out
}

func TestStore_Empty(t *testing.T) {
	var zero Store
	assert.Empty(t, zero.List())

	s := New()
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("x")
	assert.False(t, ok)
}

func TestStore_ReplaceKeepsOrderAndFirstDuplicate(t *testing.T) {
	s := New()
	n := s.Replace([]model.Receipt{
		{ID: "b", ReceiptNumber: "1"},
		{ID: "a", ReceiptNumber: "2"},
		{ID: "b", ReceiptNumber: "3"},
	})
	assert.Equal(t, 2, n)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	r, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, "1", r.ReceiptNumber)

	s.Replace(receipts("next", 1))
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ListIsACopy(t *testing.T) {
	s := New()
	s.Replace(receipts("x", 2))

	list := s.List()
	list[0].ID = "mutated"

	_, ok := s.Get("x-0")
	assert.True(t, ok)
	assert.Equal(t, "x-0", s.List()[0].ID)
}

func TestStore_ReadersSeeWholeBatches(t *testing.T) {
	s := New()
	s.Replace(receipts("a", 50))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				list := s.List()
				if len(list) == 0 {
					continue
				}
				// every receipt of a snapshot comes from the same batch
				for _, r := range list {
					if r.ReceiptNumber != list[0].ReceiptNumber || len(list) != 50 {
						t.Errorf("mixed snapshot: %d receipts, %s vs %s", len(list), r.ReceiptNumber, list[0].ReceiptNumber)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			s.Replace(receipts("b", 50))
		} else {
			s.Replace(receipts("a", 50))
		}
	}
	close(stop)
	wg.Wait()
}
