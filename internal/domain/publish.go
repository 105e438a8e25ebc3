package domain

// Target names a fan-out destination of a publish run.
type Target string

const (
	TargetAnnouncement Target = "announcement"
	TargetNewsletter   Target = "newsletter"
)

// TargetOutcome reports how a single fan-out target settled.
type TargetOutcome struct {
	Target Target
	OK     bool
	Detail string
	Err    error
}

// PublishResult is the structured report of a publish run. It is
// authoritative regardless of whether the status commit happened.
type PublishResult struct {
	Announcement    TargetOutcome
	Newsletter      TargetOutcome
	Published       int
	Committed       bool
	CampaignID      string
	AnnouncementRef string
}

// Succeeded counts the fan-out targets that completed without error.
func (r PublishResult) Succeeded() int {
	count := 0
	for _, outcome := range []TargetOutcome{r.Announcement, r.Newsletter} {
		if outcome.OK {
			count++
		}
	}
	return count
}

// PublicationRefs are the external references attached to stories on commit.
type PublicationRefs struct {
	CampaignID      string
	AnnouncementRef string
}
