package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finsurvey/entity"
	"finsurvey/internal/config"
)

const (
	collectionSurveys        = "surveys"
	collectionAccessRequests = "accessrequests"
	collectionAccessTokens   = "accesstokens"
)

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

type MongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoClient(ctx context.Context, conf *config.Config) (*MongoDB, error) {
	connectionUri := conf.Mongo.Uri
	if connectionUri == "" {
		connectionUri = fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	}
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	connection, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err = connection.Ping(ctx, nil); err != nil {
		_ = connection.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return &MongoDB{
		client:   connection,
		database: conf.Mongo.Database,
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

// findError treats a missing document as a nil result
func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) insertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("mongodb insert: %w", err)
}

// EnsureIndexes creates the unique, TTL and query indexes the stores rely on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collectionSurveys: {
			{Keys: bson.D{{Key: "submittedAt", Value: -1}}},
			{Keys: bson.D{{Key: "ageGroup", Value: 1}, {Key: "occupation", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "emailVerified", Value: 1}}},
		},
		collectionAccessRequests: {
			{Keys: bson.D{{Key: "approvalToken", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		collectionAccessTokens: {
			{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for name, models := range indexes {
		if _, err := m.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb indexes %s: %w", name, err)
		}
	}
	return nil
}

func (m *MongoDB) SaveSurvey(ctx context.Context, survey *entity.Survey) error {
	_, err := m.collection(collectionSurveys).InsertOne(ctx, survey)
	if err != nil {
		return m.insertError(err)
	}
	return nil
}

func (m *MongoDB) CountSurveys(ctx context.Context) (int64, error) {
	count, err := m.collection(collectionSurveys).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return count, nil
}

// ListSurveys returns one page, newest first
func (m *MongoDB) ListSurveys(ctx context.Context, skip, limit int64) ([]*entity.Survey, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "submittedAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	return m.findSurveys(ctx, bson.D{}, opts)
}

// AllSurveys returns every document, newest first
func (m *MongoDB) AllSurveys(ctx context.Context) ([]*entity.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	return m.findSurveys(ctx, bson.D{}, opts)
}

// answerProjection leaves out respondent identity and request metadata
var answerProjection = bson.D{
	{Key: "name", Value: 0},
	{Key: "email", Value: 0},
	{Key: "ipAddress", Value: 0},
	{Key: "userAgent", Value: 0},
}

// AnswerSurveys returns every document with answers only, newest first.
// Analytics aggregates these in memory, so request cost grows with the
// collection.
func (m *MongoDB) AnswerSurveys(ctx context.Context) ([]*entity.Survey, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "submittedAt", Value: -1}}).
		SetProjection(answerProjection)
	return m.findSurveys(ctx, bson.D{}, opts)
}

func (m *MongoDB) findSurveys(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*entity.Survey, error) {
	cursor, err := m.collection(collectionSurveys).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find surveys: %w", err)
	}
	defer cursor.Close(ctx)

	surveys := make([]*entity.Survey, 0)
	if err = cursor.All(ctx, &surveys); err != nil {
		return nil, fmt.Errorf("mongodb decode surveys: %w", err)
	}
	return surveys, nil
}

func (m *MongoDB) CreateAccessRequest(ctx context.Context, request *entity.AccessRequest) error {
	_, err := m.collection(collectionAccessRequests).InsertOne(ctx, request)
	if err != nil {
		return m.insertError(err)
	}
	return nil
}

// GetAccessRequest returns nil without error when the token is unknown
func (m *MongoDB) GetAccessRequest(ctx context.Context, token string) (*entity.AccessRequest, error) {
	filter := bson.D{{Key: "approvalToken", Value: token}}
	var request entity.AccessRequest
	err := m.collection(collectionAccessRequests).FindOne(ctx, filter).Decode(&request)
	if err != nil {
		return nil, m.findError(err)
	}
	return &request, nil
}

// DecideAccessRequest moves a pending request to status; false means the
// request was no longer pending
func (m *MongoDB) DecideAccessRequest(ctx context.Context, token string, status entity.AccessStatus, at time.Time) (bool, error) {
	filter := bson.D{
		{Key: "approvalToken", Value: token},
		{Key: "status", Value: entity.StatusPending},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "decidedAt", Value: at},
		{Key: "updatedAt", Value: at},
	}}}
	result, err := m.collection(collectionAccessRequests).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb update: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// PendingAccessRequests lists undecided requests, oldest first
func (m *MongoDB) PendingAccessRequests(ctx context.Context, limit int64) ([]*entity.AccessRequest, error) {
	filter := bson.D{{Key: "status", Value: entity.StatusPending}}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)
	cursor, err := m.collection(collectionAccessRequests).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find access requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := make([]*entity.AccessRequest, 0)
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("mongodb decode access requests: %w", err)
	}
	return requests, nil
}

func (m *MongoDB) CreateAccessToken(ctx context.Context, token *entity.AccessToken) error {
	_, err := m.collection(collectionAccessTokens).InsertOne(ctx, token)
	if err != nil {
		return m.insertError(err)
	}
	return nil
}

// GetAccessToken returns nil without error when no token has this hash
func (m *MongoDB) GetAccessToken(ctx context.Context, hash string) (*entity.AccessToken, error) {
	filter := bson.D{{Key: "tokenHash", Value: hash}}
	var token entity.AccessToken
	err := m.collection(collectionAccessTokens).FindOne(ctx, filter).Decode(&token)
	if err != nil {
		return nil, m.findError(err)
	}
	return &token, nil
}

func (m *MongoDB) DeleteAccessToken(ctx context.Context, hash string) error {
	filter := bson.D{{Key: "tokenHash", Value: hash}}
	if _, err := m.collection(collectionAccessTokens).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("mongodb delete: %w", err)
	}
	return nil
}
