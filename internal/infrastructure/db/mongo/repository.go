package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/devserver"
)

const (
	collectionUsers    = "users"
	collectionTasks    = "tasks"
	collectionCounters = "counters"
)

// Repository implements devserver.Repository. Users and tasks get numeric
// ids from per-collection sequences in the counters collection.
type Repository struct {
	db       *mongo.Database
	users    *mongo.Collection
	tasks    *mongo.Collection
	counters *mongo.Collection
}

var _ devserver.Repository = (*Repository)(nil)

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		db:       db,
		users:    db.Collection(collectionUsers),
		tasks:    db.Collection(collectionTasks),
		counters: db.Collection(collectionCounters),
	}
}

type userDoc struct {
	ID           int64     `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type taskDoc struct {
	ID          int64     `bson:"_id"`
	OwnerID     int64     `bson:"owner_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description,omitempty"`
	DueDate     time.Time `bson:"due_date"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d taskDoc) task() domain.Task {
	return domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate.UTC(),
		Status:      domain.TaskStatus(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique email index and the owner lookup index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}

	_, err = r.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("tasks index: %w", err)
	}
	return nil
}

func (r *Repository) nextID(ctx context.Context, sequence string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", sequence, err)
	}
	return counter.Seq, nil
}

func (r *Repository) CreateUser(ctx context.Context, acc *devserver.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx, collectionUsers)
	if err != nil {
		return err
	}
	doc := userDoc{
		ID:           id,
		Name:         acc.Name,
		Email:        acc.Email,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt,
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return devserver.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	acc.ID = id
	return nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*devserver.Account, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *Repository) FindUserByID(ctx context.Context, id int64) (*devserver.Account, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *Repository) findUser(ctx context.Context, filter bson.M) (*devserver.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, devserver.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &devserver.Account{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}

func (r *Repository) InsertTask(ctx context.Context, userID int64, t *domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx, collectionTasks)
	if err != nil {
		return err
	}
	doc := taskDoc{
		ID:          id,
		OwnerID:     userID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	return nil
}

func (r *Repository) FindTasks(ctx context.Context, userID int64, status domain.TaskStatus) ([]domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"owner_id": userID}
	if status != "" {
		filter["status"] = string(status)
	}
	cur, err := r.tasks.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cur.Close(ctx)

	out := []domain.Task{}
	for cur.Next(ctx) {
		var doc taskDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		out = append(out, doc.task())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (r *Repository) FindTask(ctx context.Context, userID, id int64) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc taskDoc
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id, "owner_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, devserver.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	t := doc.task()
	return &t, nil
}

func (r *Repository) ReplaceTask(ctx context.Context, userID int64, t domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.tasks.UpdateOne(ctx,
		bson.M{"_id": t.ID, "owner_id": userID},
		bson.M{"$set": bson.M{
			"title":       t.Title,
			"description": t.Description,
			"due_date":    t.DueDate,
			"status":      string(t.Status),
			"updated_at":  t.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return devserver.ErrTaskNotFound
	}
	return nil
}

func (r *Repository) DeleteTask(ctx context.Context, userID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.tasks.DeleteOne(ctx, bson.M{"_id": id, "owner_id": userID})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return devserver.ErrTaskNotFound
	}
	return nil
}

// Ping checks the server and runs a ping command against the database.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.Client().Ping(ctx, nil); err != nil {
		return err
	}
	return r.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}
