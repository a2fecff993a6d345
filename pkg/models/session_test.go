package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvelasco/fasegate/pkg/models"
)

func TestPanelSession_EmailSentFlags(t *testing.T) {
	sess := &models.PanelSession{}

	assert.False(t, sess.EmailSentFor(1), "nil map reads as not sent")

	sess.MarkEmailSent(1)
	assert.True(t, sess.EmailSentFor(1))
	assert.False(t, sess.EmailSentFor(2))

	sess.ClearEmailSent(1)
	assert.False(t, sess.EmailSentFor(1))
}

func TestPanelSession_ClearEmailSentOnNilMap(t *testing.T) {
	sess := &models.PanelSession{}

	// Must not panic.
	sess.ClearEmailSent(1)
	assert.False(t, sess.EmailSentFor(1))
}
