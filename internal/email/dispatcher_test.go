package email

import (
	"context"
	"testing"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/campaign"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestDispatchQueuesOnePerRecipient(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectSetNX(`campaign:dispatch:9`, `.*`, dispatchTTL).SetVal(true)
	mock.Regexp().ExpectLPush("emails", `.*bob@corp\.com.*`).SetVal(1)
	mock.Regexp().ExpectLPush("emails", `.*cyd@corp\.com.*`).SetVal(2)

	d := NewDispatcher(newTestService(db))

	c := &campaign.Campaign{ID: 9, FromEmail: "ann@corp.com", Subject: "Launch", Body: "Hi {{name}}"}
	err := d.Dispatch(ctx, c, []campaign.Recipient{
		{ContactID: 10, Email: "bob@corp.com", Name: "Bob"},
		{ContactID: 11, Email: "cyd@corp.com", Name: "Cyd"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchIsIdempotentPerCampaign(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	// marker already set: a retry must not queue anything
	mock.Regexp().ExpectSetNX(`campaign:dispatch:9`, `.*`, dispatchTTL).SetVal(false)

	d := NewDispatcher(newTestService(db))

	c := &campaign.Campaign{ID: 9, FromEmail: "ann@corp.com", Subject: "Launch", Body: "Hi"}
	err := d.Dispatch(ctx, c, []campaign.Recipient{
		{ContactID: 10, Email: "bob@corp.com", Name: "Bob"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchMarkerError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectSetNX(`campaign:dispatch:9`, `.*`, dispatchTTL).SetErr(assert.AnError)

	d := NewDispatcher(newTestService(db))

	c := &campaign.Campaign{ID: 9, FromEmail: "ann@corp.com", Subject: "Launch", Body: "Hi"}
	err := d.Dispatch(ctx, c, []campaign.Recipient{
		{ContactID: 10, Email: "bob@corp.com", Name: "Bob"},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonalize(t *testing.T) {
	r := campaign.Recipient{ContactID: 1, Email: "bob@corp.com", Name: "Bob"}
	assert.Equal(t, "Hi Bob!", personalize("Hi {{name}}!", r))

	anon := campaign.Recipient{ContactID: 2, Email: "x@corp.com"}
	assert.Equal(t, "Hi {{name}}!", personalize("Hi {{name}}!", anon))
}
