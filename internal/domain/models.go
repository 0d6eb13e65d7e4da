package domain

import (
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Record is a fighter's cumulative fight record. Percentages are derived
// from the counters and always rounded to two decimals.
type Record struct {
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	Points        int     `json:"points"`
	Knockouts     int     `json:"knockouts"`
	WinPercentage float64 `json:"win_percentage"`
	KOPercentage  float64 `json:"ko_percentage"`
	CurrentStreak int     `json:"current_streak"`
}

func (r Record) TotalFights() int {
	return r.Wins + r.Losses + r.Draws
}

type FighterProfile struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Nickname    string      `json:"nickname,omitempty"`
	Birthday    time.Time   `json:"birthday"`
	HeightCM    int         `json:"height_cm"`
	WeightKG    int         `json:"weight_kg"`
	ReachCM     int         `json:"reach_cm"`
	Stance      Stance      `json:"stance"`
	Country     string      `json:"country"`
	Bio         string      `json:"bio,omitempty"`
	Tier        Tier        `json:"tier"`
	WeightClass WeightClass `json:"weight_class"`
	Record
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FightRecord struct {
	ID           string      `json:"id"`
	FighterID    string      `json:"fighter_id"`
	OpponentName string      `json:"opponent_name"`
	FightDate    time.Time   `json:"fight_date"`
	Result       FightResult `json:"result"`
	Method       FightMethod `json:"method"`
	Round        int         `json:"round"`
	PointsEarned int         `json:"points_earned"`
	Notes        string      `json:"notes,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type MatchmakingRequest struct {
	ID            string            `json:"id"`
	FighterID     string            `json:"fighter_id"`
	WeightClass   WeightClass       `json:"weight_class"`
	PreferredDate *time.Time        `json:"preferred_date,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Status        MatchmakingStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

type Tournament struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Description         string           `json:"description,omitempty"`
	WeightClass         WeightClass      `json:"weight_class"`
	MinTier             Tier             `json:"min_tier"`
	Location            string           `json:"location,omitempty"`
	StartDate           time.Time        `json:"start_date"`
	EndDate             time.Time        `json:"end_date"`
	MaxParticipants     int              `json:"max_participants"`
	CurrentParticipants int              `json:"current_participants"`
	Status              TournamentStatus `json:"status"`
	CreatedBy           string           `json:"created_by"`
	CreatedAt           time.Time        `json:"created_at"`
}

func (t Tournament) Full() bool {
	return t.CurrentParticipants >= t.MaxParticipants
}

type TournamentParticipant struct {
	TournamentID string    `json:"tournament_id"`
	FighterID    string    `json:"fighter_id"`
	JoinedAt     time.Time `json:"joined_at"`
}

type MediaAsset struct {
	ID          string      `json:"id"`
	FighterID   string      `json:"fighter_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	URL         string      `json:"url"`
	MimeType    string      `json:"mime_type"`
	SizeBytes   int64       `json:"size_bytes"`
	Status      MediaStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

type TrainingCamp struct {
	ID        string    `json:"id"`
	FighterID string    `json:"fighter_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Focus     string    `json:"focus,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

type Dispute struct {
	ID            string        `json:"id"`
	FightRecordID string        `json:"fight_record_id"`
	FiledBy       string        `json:"filed_by"`
	Reason        DisputeReason `json:"reason"`
	Description   string        `json:"description"`
	Status        DisputeStatus `json:"status"`
	Resolution    string        `json:"resolution,omitempty"`
	AdminNotes    string        `json:"admin_notes,omitempty"`
	ResolvedBy    string        `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
