package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtside/pkg/clock"
	"courtside/pkg/config"
	"courtside/pkg/model"

	reserrors "courtside/internal/reservations/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Reservations"

// ReservationRepository persists reservations. CancelIfActive and
// TransitionPayment are conditional single-document updates: they succeed
// only while the current status is still in the allowed set, which is what
// serializes concurrent writers on a single reservation.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Reservation, error)
	CancelIfActive(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error)
	TransitionPayment(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	clk        clock.Clock
}

func NewMongoReservationRepository(cfg *config.Config, clk clock.Clock) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		clk:        clk,
	}
}

func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.MongoWriteTimeout)
	defer cancel()

	reservation.CreatedAt = r.clk.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.MongoReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	reservation.ID = id

	return &reservation, nil
}

func (r *mongoReservationRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.MongoReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"date":        date,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) CancelIfActive(ctx context.Context, id string, update model.CancelUpdate) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.MongoWriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []model.ReservationStatus{model.StatusPending, model.StatusConfirmed}},
	}
	set := bson.M{
		"status":              model.StatusCancelled,
		"cancelled_at":        update.CancelledAt,
		"cancelled_by":        update.CancelledBy,
		"cancellation_reason": update.Reason,
		"refund_amount":       update.RefundAmount,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reservation model.Reservation
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNoMatch
		}
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}
	reservation.ID = id

	return &reservation, nil
}

func (r *mongoReservationRepository) TransitionPayment(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.MongoWriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":            objectID,
		"payment_status": bson.M{"$in": from},
	}
	update := bson.M{"$set": bson.M{"payment_status": to}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to transition payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return reserrors.ErrNoMatch
	}
	return nil
}
