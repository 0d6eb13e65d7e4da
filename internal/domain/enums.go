package domain

import (
	"fmt"
	"strings"
)

// Tier is an ordered skill bracket.
type Tier string

const (
	TierAmateur   Tier = "Amateur"
	TierSemiPro   Tier = "Semi-Pro"
	TierPro       Tier = "Pro"
	TierContender Tier = "Contender"
	TierChampion  Tier = "Champion"
)

var Tiers = []Tier{TierAmateur, TierSemiPro, TierPro, TierContender, TierChampion}

// Rank returns the tier's position, Amateur being 0. Unknown tiers rank -1.
func (t Tier) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

func ParseTier(s string) (Tier, error) {
	return parseEnum(s, Tiers)
}

type WeightClass string

const (
	Flyweight        WeightClass = "Flyweight"
	Bantamweight     WeightClass = "Bantamweight"
	Featherweight    WeightClass = "Featherweight"
	Lightweight      WeightClass = "Lightweight"
	Welterweight     WeightClass = "Welterweight"
	Middleweight     WeightClass = "Middleweight"
	LightHeavyweight WeightClass = "Light Heavyweight"
	Cruiserweight    WeightClass = "Cruiserweight"
	Heavyweight      WeightClass = "Heavyweight"
)

var WeightClasses = []WeightClass{
	Flyweight, Bantamweight, Featherweight, Lightweight, Welterweight,
	Middleweight, LightHeavyweight, Cruiserweight, Heavyweight,
}

func ParseWeightClass(s string) (WeightClass, error) {
	return parseEnum(s, WeightClasses)
}

type Stance string

const (
	StanceOrthodox Stance = "Orthodox"
	StanceSouthpaw Stance = "Southpaw"
	StanceSwitch   Stance = "Switch"
)

var Stances = []Stance{StanceOrthodox, StanceSouthpaw, StanceSwitch}

func ParseStance(s string) (Stance, error) {
	return parseEnum(s, Stances)
}

type FightResult string

const (
	ResultWin  FightResult = "Win"
	ResultLoss FightResult = "Loss"
	ResultDraw FightResult = "Draw"
)

var FightResults = []FightResult{ResultWin, ResultLoss, ResultDraw}

func ParseFightResult(s string) (FightResult, error) {
	return parseEnum(s, FightResults)
}

type FightMethod string

const (
	MethodKO         FightMethod = "KO"
	MethodTKO        FightMethod = "TKO"
	MethodUD         FightMethod = "UD"
	MethodSD         FightMethod = "SD"
	MethodMD         FightMethod = "MD"
	MethodSubmission FightMethod = "Submission"
	MethodDQ         FightMethod = "DQ"
	MethodNC         FightMethod = "NC"
)

var FightMethods = []FightMethod{
	MethodKO, MethodTKO, MethodUD, MethodSD, MethodMD, MethodSubmission, MethodDQ, MethodNC,
}

func ParseFightMethod(s string) (FightMethod, error) {
	return parseEnum(s, FightMethods)
}

// IsKnockout reports whether the method counts toward the knockout total.
func (m FightMethod) IsKnockout() bool {
	return m == MethodKO || m == MethodTKO
}

// Decisive reports whether the method always produces a winner.
func (m FightMethod) Decisive() bool {
	switch m {
	case MethodKO, MethodTKO, MethodSubmission, MethodDQ:
		return true
	case MethodUD, MethodSD, MethodMD, MethodNC:
		return false
	default:
		return false
	}
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type MatchmakingStatus string

const (
	MatchmakingPending   MatchmakingStatus = "pending"
	MatchmakingMatched   MatchmakingStatus = "matched"
	MatchmakingCancelled MatchmakingStatus = "cancelled"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

var TournamentStatuses = []TournamentStatus{
	TournamentUpcoming, TournamentActive, TournamentCompleted, TournamentCancelled,
}

func ParseTournamentStatus(s string) (TournamentStatus, error) {
	return parseEnum(s, TournamentStatuses)
}

// AcceptsParticipants reports whether fighters may still join.
func (s TournamentStatus) AcceptsParticipants() bool {
	switch s {
	case TournamentUpcoming:
		return true
	case TournamentActive, TournamentCompleted, TournamentCancelled:
		return false
	default:
		return false
	}
}

type MediaStatus string

const (
	MediaPending  MediaStatus = "pending"
	MediaApproved MediaStatus = "approved"
	MediaRejected MediaStatus = "rejected"
)

var ModerationOutcomes = []MediaStatus{MediaApproved, MediaRejected}

func ParseModerationOutcome(s string) (MediaStatus, error) {
	return parseEnum(s, ModerationOutcomes)
}

type DisputeStatus string

const (
	DisputePending   DisputeStatus = "pending"
	DisputeInReview  DisputeStatus = "in_review"
	DisputeResolved  DisputeStatus = "resolved"
	DisputeDismissed DisputeStatus = "dismissed"
)

var DisputeStatuses = []DisputeStatus{DisputePending, DisputeInReview, DisputeResolved, DisputeDismissed}

var DisputeOutcomes = []DisputeStatus{DisputeResolved, DisputeDismissed}

func ParseDisputeStatus(s string) (DisputeStatus, error) {
	return parseEnum(s, DisputeStatuses)
}

func ParseDisputeOutcome(s string) (DisputeStatus, error) {
	return parseEnum(s, DisputeOutcomes)
}

// Terminal reports whether no further transition is allowed.
func (s DisputeStatus) Terminal() bool {
	switch s {
	case DisputeResolved, DisputeDismissed:
		return true
	case DisputePending, DisputeInReview:
		return false
	default:
		return false
	}
}

// CanTransitionTo enforces the one-way dispute lifecycle:
// pending -> in_review -> resolved|dismissed, or pending -> resolved|dismissed.
func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	switch s {
	case DisputePending:
		return next == DisputeInReview || next.Terminal()
	case DisputeInReview:
		return next.Terminal()
	case DisputeResolved, DisputeDismissed:
		return false
	default:
		return false
	}
}

type DisputeReason string

const (
	ReasonScoring    DisputeReason = "scoring"
	ReasonResult     DisputeReason = "result"
	ReasonMethod     DisputeReason = "method"
	ReasonMisconduct DisputeReason = "misconduct"
	ReasonOther      DisputeReason = "other"
)

var DisputeReasons = []DisputeReason{ReasonScoring, ReasonResult, ReasonMethod, ReasonMisconduct, ReasonOther}

func ParseDisputeReason(s string) (DisputeReason, error) {
	return parseEnum(s, DisputeReasons)
}

func parseEnum[T ~string](s string, values []T) (T, error) {
	s = strings.TrimSpace(s)
	for _, v := range values {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("must be one of %s", joinEnum(values))
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
