package github

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePages(data [][]int, requested *[]int) pageFunc[int] {
	return func(_ context.Context, page int) ([]int, error) {
		*requested = append(*requested, page)
		if page > len(data) {
			return nil, nil
		}
		return data[page-1], nil
	}
}

func TestPages(t *testing.T) {
	data := [][]int{{1, 2}, {3}, {4, 5}}

	tests := []struct {
		name      string
		maxPages  int
		stopAfter int
		wantItems []int
		wantPages []int
	}{
		{name: "读到空页为止", maxPages: 0, wantItems: []int{1, 2, 3, 4, 5}, wantPages: []int{1, 2, 3, 4}},
		{name: "页数上限", maxPages: 2, wantItems: []int{1, 2, 3}, wantPages: []int{1, 2}},
		{name: "调用方提前结束", maxPages: 0, stopAfter: 1, wantItems: []int{1, 2}, wantPages: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requested []int
			var items []int
			seen := 0
			for page, err := range pages(context.Background(), fakePages(data, &requested), tt.maxPages) {
				require.NoError(t, err)
				items = append(items, page...)
				seen++
				if tt.stopAfter > 0 && seen >= tt.stopAfter {
					break
				}
			}
			assert.Equal(t, tt.wantItems, items)
			assert.Equal(t, tt.wantPages, requested)
		})
	}
}

func TestPages_Restartable(t *testing.T) {
	var requested []int
	seq := pages(context.Background(), fakePages([][]int{{1}, {2}}, &requested), 0)

	for range seq {
	}
	for range seq {
	}

	assert.Equal(t, []int{1, 2, 3, 1, 2, 3}, requested)
}

func TestPages_Error(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(_ context.Context, page int) ([]string, error) {
		if page == 2 {
			return nil, boom
		}
		return []string{"a"}, nil
	}

	var got []string
	var lastErr error
	for items, err := range pages(context.Background(), fetch, 0) {
		if err != nil {
			lastErr = err
			break
		}
		got = append(got, items...)
	}

	assert.Equal(t, []string{"a"}, got)
	assert.ErrorIs(t, lastErr, boom)
}
