package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type profileRow struct {
	UserID  string `gorm:"primaryKey;column:user_id"`
	Rating  int
	Wins    int
	Losses  int
	Streak  int
	Recent  string
	Balance decimal.Decimal `gorm:"type:numeric(14,2)"`
}

func (profileRow) TableName() string { return "profiles" }

type counterRow struct {
	Name  string `gorm:"primaryKey"`
	Value int64
}

func (counterRow) TableName() string { return "counters" }

type matchRow struct {
	Number    int64 `gorm:"primaryKey"`
	Players   string
	Team1     string
	Team2     string
	DraftType string
	Status    string
}

func (matchRow) TableName() string { return "matches" }

type wagerRow struct {
	ID      uint  `gorm:"primaryKey"`
	MatchID int64 `gorm:"index"`
	UserID  string
	Amount  decimal.Decimal `gorm:"type:numeric(14,2)"`
}

func (wagerRow) TableName() string { return "wagers" }

type wagerSetRow struct {
	MatchID  int64 `gorm:"primaryKey"`
	Accepted bool
	Refunded bool
	Payout   decimal.Decimal `gorm:"type:numeric(14,2)"`
	Winners  string
}

func (wagerSetRow) TableName() string { return "wager_sets" }

// Postgres implements Store on top of gorm's postgres driver.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&profileRow{}, &counterRow{}, &matchRow{}, &wagerRow{}, &wagerSetRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func toProfile(r profileRow) Profile {
	return Profile{
		UserID: r.UserID, Rating: r.Rating, Wins: r.Wins, Losses: r.Losses,
		Streak: r.Streak, Recent: r.Recent, Balance: r.Balance,
	}
}

func toRow(p Profile) profileRow {
	return profileRow{
		UserID: p.UserID, Rating: p.Rating, Wins: p.Wins, Losses: p.Losses,
		Streak: p.Streak, Recent: p.Recent, Balance: p.Balance,
	}
}

func (s *Postgres) Profile(ctx context.Context, userID string) (Profile, error) {
	row := profileRow{UserID: userID, Rating: DefaultRating, Balance: decimal.Zero}
	err := s.db.WithContext(ctx).Where(profileRow{UserID: userID}).FirstOrCreate(&row).Error
	if err != nil {
		return Profile{}, err
	}
	return toProfile(row), nil
}

func (s *Postgres) SaveProfiles(ctx context.Context, profiles []Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range profiles {
			if err := tx.Save(toRow(p)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) AddBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProfile(tx, userID); err != nil {
			return err
		}
		return tx.Model(&profileRow{}).Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error
	})
}

func (s *Postgres) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := lockProfile(tx, from)
		if err != nil {
			return err
		}
		if src.Balance.Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		if err := ensureProfile(tx, to); err != nil {
			return err
		}
		if err := tx.Model(&profileRow{}).Where("user_id = ?", from).
			Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
			return err
		}
		return tx.Model(&profileRow{}).Where("user_id = ?", to).
			Update("balance", gorm.Expr("balance + ?", amount)).Error
	})
}

func (s *Postgres) TopProfiles(ctx context.Context, limit int) ([]Profile, error) {
	var rows []profileRow
	err := s.db.WithContext(ctx).Order("rating desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Profile, len(rows))
	for i, r := range rows {
		out[i] = toProfile(r)
	}
	return out, nil
}

func (s *Postgres) NextMatchNumber(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := counterRow{Name: "match"}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(counterRow{Name: "match"}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
		row.Value++
		next = row.Value
		return tx.Save(&row).Error
	})
	return next, err
}

func (s *Postgres) SaveMatch(ctx context.Context, rec MatchRecord) error {
	row, err := matchToRow(rec)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Postgres) UpdateMatch(ctx context.Context, rec MatchRecord) error {
	updates := map[string]any{}
	if len(rec.Team1) > 0 {
		updates["team1"] = mustJSON(rec.Team1)
	}
	if len(rec.Team2) > 0 {
		updates["team2"] = mustJSON(rec.Team2)
	}
	if rec.DraftType != "" {
		updates["draft_type"] = rec.DraftType
	}
	if rec.Status != "" {
		updates["status"] = string(rec.Status)
	}
	res := s.db.WithContext(ctx).Model(&matchRow{}).Where("number = ?", rec.Number).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Match(ctx context.Context, number int64) (MatchRecord, error) {
	var row matchRow
	err := s.db.WithContext(ctx).Where("number = ?", number).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return MatchRecord{}, err
	}
	return rowToMatch(row)
}

func (s *Postgres) PlaceWager(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProfile(tx, userID)
		if err != nil {
			return err
		}
		if p.Balance.Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		if err := tx.Model(&profileRow{}).Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(&wagerRow{MatchID: matchID, UserID: userID, Amount: amount}).Error
	})
}

func (s *Postgres) RemoveWager(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row wagerRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("match_id = ? AND user_id = ? AND amount = ?", matchID, userID, amount).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&row).Error; err != nil {
			return err
		}
		if err := ensureProfile(tx, userID); err != nil {
			return err
		}
		return tx.Model(&profileRow{}).Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error
	})
}

func (s *Postgres) Wagers(ctx context.Context, matchID int64) (WagerSet, error) {
	var rows []wagerRow
	if err := s.db.WithContext(ctx).Where("match_id = ?", matchID).Order("id").Find(&rows).Error; err != nil {
		return WagerSet{}, err
	}
	var setRow wagerSetRow
	err := s.db.WithContext(ctx).Where("match_id = ?", matchID).First(&setRow).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return WagerSet{}, err
	}
	if len(rows) == 0 && errors.Is(err, gorm.ErrRecordNotFound) {
		return WagerSet{}, ErrNotFound
	}
	set := WagerSet{
		MatchID:  matchID,
		Accepted: setRow.Accepted,
		Refunded: setRow.Refunded,
		Payout:   setRow.Payout,
	}
	if setRow.Winners != "" {
		if err := json.Unmarshal([]byte(setRow.Winners), &set.Winners); err != nil {
			return WagerSet{}, err
		}
	}
	for _, r := range rows {
		set.Entries = append(set.Entries, WagerEntry{UserID: r.UserID, Amount: r.Amount})
	}
	return set, nil
}

func (s *Postgres) FinalizeWagers(ctx context.Context, set WagerSet, credits map[string]decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := wagerSetRow{MatchID: set.MatchID}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(wagerSetRow{MatchID: set.MatchID}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
		if row.Accepted || row.Refunded {
			return ErrAlreadyResolved
		}
		for userID, amount := range credits {
			if err := ensureProfile(tx, userID); err != nil {
				return err
			}
			if err := tx.Model(&profileRow{}).Where("user_id = ?", userID).
				Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
				return err
			}
		}
		row.Accepted = set.Accepted
		row.Refunded = set.Refunded
		row.Payout = set.Payout
		row.Winners = mustJSON(set.Winners)
		return tx.Save(&row).Error
	})
}

func lockProfile(tx *gorm.DB, userID string) (profileRow, error) {
	row := profileRow{UserID: userID, Rating: DefaultRating, Balance: decimal.Zero}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(profileRow{UserID: userID}).FirstOrCreate(&row).Error
	return row, err
}

func ensureProfile(tx *gorm.DB, userID string) error {
	row := profileRow{UserID: userID, Rating: DefaultRating, Balance: decimal.Zero}
	return tx.Where(profileRow{UserID: userID}).FirstOrCreate(&row).Error
}

func matchToRow(rec MatchRecord) (matchRow, error) {
	return matchRow{
		Number:    rec.Number,
		Players:   mustJSON(rec.Players),
		Team1:     mustJSON(rec.Team1),
		Team2:     mustJSON(rec.Team2),
		DraftType: rec.DraftType,
		Status:    string(rec.Status),
	}, nil
}

func rowToMatch(row matchRow) (MatchRecord, error) {
	rec := MatchRecord{Number: row.Number, DraftType: row.DraftType, Status: MatchStatus(row.Status)}
	for _, pair := range []struct {
		raw string
		out *[]string
	}{{row.Players, &rec.Players}, {row.Team1, &rec.Team1}, {row.Team2, &rec.Team2}} {
		if pair.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw), pair.out); err != nil {
			return MatchRecord{}, err
		}
	}
	return rec, nil
}

func mustJSON(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}
