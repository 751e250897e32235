// Package mongo implements the freeform-document persistence ports:
// heuristics.FlagSink and the moderation audit log, grounded on the
// teacher's common/mmongo/mongo.go connection wrapper and its implied
// idiom of storing loosely-typed operational documents (the teacher itself
// has no mongo-backed repository to imitate directly — mongo only appears
// in the pack as a connection wrapper — so the collection/document shape
// below is original to this module, following bson struct-tag conventions
// standard to the driver).
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbmongo"
)

const flagsCollection = "behavioral_flags"

// flagDocument is the freeform bson shape a BehavioralFlag is stored as.
type flagDocument struct {
	Type        string         `bson:"type"`
	AffectedIDs []string       `bson:"affected_ids"`
	Details     map[string]any `bson:"details"`
	DetectedAt  time.Time      `bson:"detected_at"`
}

// Flags implements heuristics.FlagSink.
type Flags struct {
	conn *dbmongo.Connection
}

// NewFlags constructs a Flags repository.
func NewFlags(conn *dbmongo.Connection) *Flags { return &Flags{conn: conn} }

// PersistFlag implements heuristics.FlagSink.
func (f *Flags) PersistFlag(ctx context.Context, flag domain.BehavioralFlag) error {
	database, err := f.conn.DB(ctx)
	if err != nil {
		return err
	}

	doc := flagDocument{
		Type:        string(flag.Type),
		AffectedIDs: flag.AffectedIDs,
		Details:     flag.Details,
		DetectedAt:  flag.DetectedAt,
	}

	_, err = database.Collection(flagsCollection).InsertOne(ctx, doc)

	return err
}

// RecentByType returns the most recently detected flags of kind, newest
// first, for the moderation review queue.
func (f *Flags) RecentByType(ctx context.Context, kind domain.BehavioralFlagType, limit int64) ([]domain.BehavioralFlag, error) {
	database, err := f.conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "detected_at", Value: -1}}).SetLimit(limit)

	cursor, err := database.Collection(flagsCollection).Find(ctx, bson.M{"type": string(kind)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flags []domain.BehavioralFlag

	for cursor.Next(ctx) {
		var doc flagDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}

		flags = append(flags, domain.BehavioralFlag{
			Type:        domain.BehavioralFlagType(doc.Type),
			AffectedIDs: doc.AffectedIDs,
			Details:     doc.Details,
			DetectedAt:  doc.DetectedAt,
		})
	}

	return flags, cursor.Err()
}
