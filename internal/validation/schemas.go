package validation

import (
	"strings"
	"time"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/domain"
)

type SignUpInput struct {
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password" validate:"required,min=8,max=72,bcryptlen"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

func (v *Validator) SignUp(form Form) (SignUpInput, error) {
	d := newDecoder(form)
	in := SignUpInput{
		Email:           strings.ToLower(d.text("email")),
		Password:        form["password"],
		ConfirmPassword: form["confirm_password"],
	}
	return check(v, d, in)
}

type SignInInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (v *Validator) SignIn(form Form) (SignInInput, error) {
	d := newDecoder(form)
	in := SignInInput{
		Email:    strings.ToLower(d.text("email")),
		Password: form["password"],
	}
	return check(v, d, in)
}

type FighterProfileInput struct {
	Name        string             `form:"name" validate:"required,min=2,max=80"`
	Nickname    string             `form:"nickname" validate:"max=40"`
	Birthday    time.Time          `form:"birthday" validate:"required,notfuture,fighterage"`
	HeightCM    int                `form:"height_cm" validate:"min=120,max=230"`
	WeightKG    int                `form:"weight_kg" validate:"min=45,max=180"`
	ReachCM     int                `form:"reach_cm" validate:"min=120,max=240"`
	Stance      domain.Stance      `form:"stance" validate:"required"`
	WeightClass domain.WeightClass `form:"weight_class" validate:"required"`
	Country     string             `form:"country" validate:"required,min=2,max=56"`
	Bio         string             `form:"bio" validate:"max=500"`
}

func (v *Validator) FighterProfile(form Form) (FighterProfileInput, error) {
	d := newDecoder(form)
	in := FighterProfileInput{
		Name:        d.text("name"),
		Nickname:    d.text("nickname"),
		Birthday:    d.date("birthday"),
		HeightCM:    d.integer("height_cm"),
		WeightKG:    d.integer("weight_kg"),
		ReachCM:     d.integer("reach_cm"),
		Stance:      decodeEnum(d, "stance", domain.ParseStance),
		WeightClass: decodeEnum(d, "weight_class", domain.ParseWeightClass),
		Country:     d.text("country"),
		Bio:         d.text("bio"),
	}
	return check(v, d, in)
}

type FightRecordInput struct {
	OpponentName string             `form:"opponent_name" validate:"required,min=2,max=80"`
	FightDate    time.Time          `form:"fight_date" validate:"required,notfuture"`
	Result       domain.FightResult `form:"result" validate:"required"`
	Method       domain.FightMethod `form:"method" validate:"required"`
	Round        int                `form:"round" validate:"min=1,max=15"`
	PointsEarned int                `form:"points_earned" validate:"min=0,max=100"`
	Notes        string             `form:"notes" validate:"max=500"`
}

func (v *Validator) FightRecord(form Form) (FightRecordInput, error) {
	d := newDecoder(form)
	in := FightRecordInput{
		OpponentName: d.text("opponent_name"),
		FightDate:    d.date("fight_date"),
		Result:       decodeEnum(d, "result", domain.ParseFightResult),
		Method:       decodeEnum(d, "method", domain.ParseFightMethod),
		Round:        d.integer("round"),
		PointsEarned: d.integer("points_earned"),
		Notes:        d.text("notes"),
	}
	return check(v, d, in)
}

type MatchmakingInput struct {
	WeightClass   domain.WeightClass `form:"weight_class" validate:"required"`
	PreferredDate *time.Time         `form:"preferred_date" validate:"omitempty,notpast"`
	Notes         string             `form:"notes" validate:"max=500"`
}

func (v *Validator) Matchmaking(form Form) (MatchmakingInput, error) {
	d := newDecoder(form)
	in := MatchmakingInput{
		WeightClass:   decodeEnum(d, "weight_class", domain.ParseWeightClass),
		PreferredDate: d.optionalDate("preferred_date"),
		Notes:         d.text("notes"),
	}
	return check(v, d, in)
}

type TournamentInput struct {
	Name            string             `form:"name" validate:"required,min=3,max=100"`
	Description     string             `form:"description" validate:"max=1000"`
	WeightClass     domain.WeightClass `form:"weight_class" validate:"required"`
	MinTier         domain.Tier        `form:"min_tier" validate:"required"`
	Location        string             `form:"location" validate:"max=120"`
	StartDate       time.Time          `form:"start_date" validate:"required,notpast"`
	EndDate         time.Time          `form:"end_date" validate:"required,gtfield=StartDate"`
	MaxParticipants int                `form:"max_participants" validate:"min=4,max=64"`
}

func (v *Validator) Tournament(form Form) (TournamentInput, error) {
	d := newDecoder(form)
	in := TournamentInput{
		Name:            d.text("name"),
		Description:     d.text("description"),
		WeightClass:     decodeEnum(d, "weight_class", domain.ParseWeightClass),
		MinTier:         decodeOptionalEnum(d, "min_tier", domain.TierAmateur, domain.ParseTier),
		Location:        d.text("location"),
		StartDate:       d.date("start_date"),
		EndDate:         d.date("end_date"),
		MaxParticipants: d.integer("max_participants"),
	}
	return check(v, d, in)
}

type TrainingCampInput struct {
	Name      string    `form:"name" validate:"required,min=3,max=100"`
	Location  string    `form:"location" validate:"max=120"`
	Focus     string    `form:"focus" validate:"max=200"`
	StartDate time.Time `form:"start_date" validate:"required"`
	EndDate   time.Time `form:"end_date" validate:"required,gtfield=StartDate"`
}

func (v *Validator) TrainingCamp(form Form) (TrainingCampInput, error) {
	d := newDecoder(form)
	in := TrainingCampInput{
		Name:      d.text("name"),
		Location:  d.text("location"),
		Focus:     d.text("focus"),
		StartDate: d.date("start_date"),
		EndDate:   d.date("end_date"),
	}
	return check(v, d, in)
}

type DisputeInput struct {
	FightRecordID string               `form:"fight_record_id" validate:"required"`
	Reason        domain.DisputeReason `form:"reason" validate:"required"`
	Description   string               `form:"description" validate:"required,min=20,max=2000"`
}

func (v *Validator) Dispute(form Form) (DisputeInput, error) {
	d := newDecoder(form)
	in := DisputeInput{
		FightRecordID: d.text("fight_record_id"),
		Reason:        decodeEnum(d, "reason", domain.ParseDisputeReason),
		Description:   d.text("description"),
	}
	return check(v, d, in)
}

type DisputeResolutionInput struct {
	DisputeID  string               `form:"dispute_id" validate:"required"`
	Status     domain.DisputeStatus `form:"status" validate:"required"`
	Resolution string               `form:"resolution" validate:"required,min=10,max=2000"`
	AdminNotes string               `form:"admin_notes" validate:"max=2000"`
}

func (v *Validator) DisputeResolution(form Form) (DisputeResolutionInput, error) {
	d := newDecoder(form)
	in := DisputeResolutionInput{
		DisputeID:  d.text("dispute_id"),
		Status:     decodeEnum(d, "status", domain.ParseDisputeOutcome),
		Resolution: d.text("resolution"),
		AdminNotes: d.text("admin_notes"),
	}
	return check(v, d, in)
}

type TierChangeInput struct {
	FighterID string      `form:"fighter_id" validate:"required"`
	Tier      domain.Tier `form:"tier" validate:"required"`
}

func (v *Validator) TierChange(form Form) (TierChangeInput, error) {
	d := newDecoder(form)
	in := TierChangeInput{
		FighterID: d.text("fighter_id"),
		Tier:      decodeEnum(d, "tier", domain.ParseTier),
	}
	return check(v, d, in)
}

type ModerationInput struct {
	MediaID string             `form:"media_id" validate:"required"`
	Status  domain.MediaStatus `form:"status" validate:"required"`
}

func (v *Validator) Moderation(form Form) (ModerationInput, error) {
	d := newDecoder(form)
	in := ModerationInput{
		MediaID: d.text("media_id"),
		Status:  decodeEnum(d, "status", domain.ParseModerationOutcome),
	}
	return check(v, d, in)
}

// Reference extracts a single required identifier from the form.
func (v *Validator) Reference(form Form, key string) (string, error) {
	id := strings.TrimSpace(form[key])
	if id == "" {
		return "", apperr.Invalid(map[string]string{key: "is required"})
	}
	if len(id) > 64 {
		return "", apperr.Invalid(map[string]string{key: "is invalid"})
	}
	return id, nil
}
