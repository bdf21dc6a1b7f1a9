package model

// SponsorTime is one raw submitted annotation row of the mirrored
// "sponsorTimes" table.
type SponsorTime struct {
	VideoID        string  `json:"videoID"`
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	Votes          int     `json:"votes"`
	Locked         int     `json:"locked"`
	IncorrectVotes int     `json:"incorrectVotes"`
	UUID           string  `json:"UUID"`
	UserID         string  `json:"userID"`
	TimeSubmitted  int64   `json:"timeSubmitted"`
	Views          int     `json:"views"`
	Category       string  `json:"category"`
	ActionType     string  `json:"actionType"`
	Service        string  `json:"service"`
	VideoDuration  float64 `json:"videoDuration"`
	Hidden         int     `json:"hidden"`
	Reputation     float64 `json:"reputation"`
	ShadowHidden   int     `json:"shadowHidden"`
	HashedVideoID  string  `json:"hashedVideoID"`
	UserAgent      string  `json:"userAgent"`
	Description    string  `json:"description"`
}

// Segment is the client-facing view of a SponsorTime. Two segments are the
// same segment iff their UUIDs match.
type Segment struct {
	UUID          string     `json:"UUID"`
	ActionType    string     `json:"actionType"`
	Category      string     `json:"category"`
	Description   string     `json:"description"`
	Locked        int        `json:"locked"`
	Segment       [2]float64 `json:"segment"`
	UserID        string     `json:"userID"`
	VideoDuration float64    `json:"videoDuration"`
	Votes         int        `json:"votes"`
}

// Start returns the segment's start offset in seconds.
func (s Segment) Start() float64 { return s.Segment[0] }

// End returns the segment's end offset in seconds.
func (s Segment) End() float64 { return s.Segment[1] }

// NewSegment builds the client-facing segment for a row.
func NewSegment(st SponsorTime) Segment {
	return Segment{
		UUID:          st.UUID,
		ActionType:    st.ActionType,
		Category:      st.Category,
		Description:   st.Description,
		Locked:        st.Locked,
		Segment:       [2]float64{st.StartTime, st.EndTime},
		UserID:        st.UserID,
		VideoDuration: st.VideoDuration,
		Votes:         st.Votes,
	}
}

// Sponsor is the reconciled answer for one video.
type Sponsor struct {
	Hash     string    `json:"hash"`
	VideoID  string    `json:"videoID"`
	Segments []Segment `json:"segments"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Checks    HealthChecks `json:"checks"`
}

// HealthChecks groups the individual dependency probes.
type HealthChecks struct {
	Database HealthCheck  `json:"database"`
	Cache    *HealthCheck `json:"cache,omitempty"`
}

// HealthCheck is the result of a single dependency probe.
type HealthCheck struct {
	Status         string  `json:"status"`
	Message        *string `json:"message"`
	ResponseTimeMs *int64  `json:"response_time_ms"`
}

// VIPResponse is the fixed body of GET /api/isUserVIP.
type VIPResponse struct {
	HashedUserID string `json:"hashedUserID"`
	VIP          bool   `json:"vip"`
}

// UserInfoResponse is the fixed body of GET /api/userInfo.
type UserInfoResponse struct {
	UserID       string `json:"userID"`
	UserName     string `json:"userName"`
	MinutesSaved int    `json:"minutesSaved"`
	SegmentCount int    `json:"segmentCount"`
	ViewCount    int    `json:"viewCount"`
}
