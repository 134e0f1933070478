package page

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gabriel/boxd-companion/internal/models"
)

func TestFormatInfo(t *testing.T) {
	assert.Equal(t, NoReleaseDataMsg, FormatInfo(nil))
	assert.Equal(t, NoReleaseDataMsg, FormatInfo(&models.ReleaseDateSummary{}))

	onlyDigital := &models.ReleaseDateSummary{
		Digital: &models.ReleaseDateEntry{Value: "May 3, 2030", Status: models.StatusUpcoming},
		HasData: true,
	}
	assert.Equal(t, "Digital: May 3, 2030", FormatInfo(onlyDigital))
	assert.Equal(t, `Digital: <span style="color:#e5533d">May 3, 2030</span>`, FormatInfoHTML(onlyDigital))
}

func TestFormatInfoHTMLEscapesValues(t *testing.T) {
	summary := &models.ReleaseDateSummary{
		Physical: &models.ReleaseDateEntry{Value: "<b>soon</b>", Status: models.StatusUnknown},
		HasData:  true,
	}
	assert.Equal(t, `DVD/Blu-ray: <span style="color:#8f8f8f">&lt;b&gt;soon&lt;/b&gt;</span>`, FormatInfoHTML(summary))
}

func TestDismissSubscription(t *testing.T) {
	dismiss := NewDismissSubscription()
	assert.False(t, dismiss.Fire(), "idle subscription never fires")

	dismiss.Arm()
	assert.Equal(t, DismissArmed, dismiss.State())
	assert.True(t, dismiss.Fire())
	assert.False(t, dismiss.Fire())
	assert.Equal(t, DismissFired, dismiss.State())

	dismiss.Cancel()
	assert.Equal(t, DismissFired, dismiss.State())

	rearmed := NewDismissSubscription()
	rearmed.Arm()
	rearmed.Cancel()
	assert.Equal(t, DismissIdle, rearmed.State())
	assert.False(t, rearmed.Fire())
}
