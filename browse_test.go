package main

import (
	"context"
	"errors"
	"testing"

	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searcherFunc func(ctx context.Context, query string) ([]*gmail.Message, error)

func (f searcherFunc) SearchMails(ctx context.Context, query string) ([]*gmail.Message, error) {
	return f(ctx, query)
}

func TestSearchIntoDelivers(t *testing.T) {
	feed := make(chan *gmail.Message, 2)
	errs := make(chan error, 1)
	s := searcherFunc(func(_ context.Context, query string) ([]*gmail.Message, error) {
		assert.Equal(t, "from:a", query)
		return []*gmail.Message{{ID: "1"}, {ID: "2"}}, nil
	})

	searchInto(context.Background(), s, "from:a", feed, errs)

	var ids []string
	for m := range feed {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Empty(t, errs)
}

func TestSearchIntoReportsFailure(t *testing.T) {
	feed := make(chan *gmail.Message)
	errs := make(chan error, 1)
	s := searcherFunc(func(context.Context, string) ([]*gmail.Message, error) {
		return nil, gmail.ErrTooManyMessages
	})

	searchInto(context.Background(), s, "", feed, errs)

	_, open := <-feed
	assert.False(t, open)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(<-errs, gmail.ErrTooManyMessages))
}
