package docs

import "testing"

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}

	for _, bad := range []string{"", "Draft", "deleted", "pending", "ACTIVE"} {
		if _, err := ParseStatus(bad); err == nil {
			t.Errorf("ParseStatus(%q) expected error", bad)
		}
	}
}

func TestStatus_IsPending(t *testing.T) {
	if !StatusPendingReview.IsPending() || !StatusPendingApproval.IsPending() {
		t.Error("pending statuses must report IsPending")
	}
	for _, s := range []Status{StatusDraft, StatusInReview, StatusApproved, StatusActive, StatusRejected, StatusArchived, StatusExpired} {
		if s.IsPending() {
			t.Errorf("%s must not report IsPending", s)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range AllCategories {
		if _, err := ParseCategory(string(c)); err != nil {
			t.Errorf("ParseCategory(%q) unexpected error: %v", c, err)
		}
	}
	for _, bad := range []string{"", "SOP", "invoice"} {
		if _, err := ParseCategory(bad); err == nil {
			t.Errorf("ParseCategory(%q) expected error", bad)
		}
	}
}
