package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactlink/internal/models"
)

func TestBuildResponse(t *testing.T) {
	cluster := []models.Contact{
		secondary(4, 2, "shared@x.com", "", t0.Add(-time.Hour)),
		primary(2, "p@x.com", "111", t0),
		secondary(5, 2, "", "222", t0.Add(time.Minute)),
		secondary(6, 2, "p@x.com", "111", t0.Add(2*time.Minute)),
	}

	resp, err := buildResponse(2, cluster)
	require.NoError(t, err)

	assert.Equal(t, int64(2), resp.Contact.PrimaryContactID)
	assert.Equal(t, []string{"p@x.com", "shared@x.com"}, resp.Contact.Emails)
	assert.Equal(t, []string{"111", "222"}, resp.Contact.PhoneNumbers)
	assert.Equal(t, []int64{4, 5, 6}, resp.Contact.SecondaryContactIDs)
}

func TestBuildResponsePrimaryWithoutEmail(t *testing.T) {
	cluster := []models.Contact{
		primary(1, "", "111", t0),
		secondary(2, 1, "a@x.com", "111", t0.Add(time.Minute)),
	}

	resp, err := buildResponse(1, cluster)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, resp.Contact.Emails)
	assert.Equal(t, []string{"111"}, resp.Contact.PhoneNumbers)
}

func TestBuildResponseMissingPrimary(t *testing.T) {
	_, err := buildResponse(9, []models.Contact{primary(1, "a@x.com", "", t0)})
	assert.ErrorIs(t, err, ErrPrimaryNotFound)

	_, err = buildResponse(9, nil)
	assert.ErrorIs(t, err, ErrPrimaryNotFound)
}
