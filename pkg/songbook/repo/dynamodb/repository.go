// Package dynamodb stores songs in a single DynamoDB table keyed by id.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/awsutil"
)

// API is the subset of the DynamoDB client used by the repository
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Config options for the DynamoDB repository
type Config struct {
	Region          string
	TableName       string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional custom endpoint, e.g. DynamoDB Local

	// CreateTableIfNotExist creates an on-demand table with partition key id
	CreateTableIfNotExist bool
}

// Repository implements songbook.Repository using DynamoDB
type Repository struct {
	client API
	table  string
}

// New creates a DynamoDB repository from config
func New(ctx context.Context, config Config) (*Repository, error) {
	if config.TableName == "" {
		return nil, errors.New("table name is required")
	}

	awsCfg, err := awsutil.LoadConfig(ctx, awsutil.Credentials{
		Region:          config.Region,
		AccessKeyID:     config.AccessKeyID,
		SecretAccessKey: config.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	repo := NewWithClient(client, config.TableName)
	if config.CreateTableIfNotExist {
		if err := repo.createTableIfNotExists(ctx); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	return repo, nil
}

// NewWithClient creates a repository over an existing client
func NewWithClient(client API, table string) *Repository {
	return &Repository{client: client, table: table}
}

func (r *Repository) createTableIfNotExists(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table: %w", err)
	}

	_, err = r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(r.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(r.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)}, 2*time.Minute)
}

func songKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf) || awsutil.HasErrorCode(err, "ConditionalCheckFailedException")
}

// ListSongs scans the whole table. Order is whatever DynamoDB returns.
func (r *Repository) ListSongs(ctx context.Context) ([]*songbook.Song, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})

	songs := []*songbook.Song{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan songs: %w", err)
		}

		var batch []*songbook.Song
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal songs: %w", err)
		}
		songs = append(songs, batch...)
	}

	return songs, nil
}

func (r *Repository) GetSong(ctx context.Context, id string) (*songbook.Song, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       songKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var song songbook.Song
	if err := attributevalue.UnmarshalMap(out.Item, &song); err != nil {
		return nil, fmt.Errorf("failed to unmarshal song: %w", err)
	}
	return &song, nil
}

func (r *Repository) CreateSong(ctx context.Context, song *songbook.Song) error {
	item, err := attributevalue.MarshalMap(song)
	if err != nil {
		return fmt.Errorf("failed to marshal song: %w", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("id"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     item,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if isConditionFailed(err) {
		return songbook.ErrSongExists
	}
	if err != nil {
		return fmt.Errorf("failed to put song: %w", err)
	}
	return nil
}

// UpdateSong sets only the attributes present in the patch plus updatedAt.
// The condition on id keeps UpdateItem from creating a new item.
func (r *Repository) UpdateSong(ctx context.Context, id string, patch songbook.SongPatch) (*songbook.Song, error) {
	update := expression.Set(expression.Name("updatedAt"), expression.Value(patch.UpdatedAt))

	fields := []struct {
		name  string
		value *string
	}{
		{"title", patch.Title},
		{"lyrics", patch.Lyrics},
		{"audioKey", patch.AudioKey},
		{"videoKey", patch.VideoKey},
		{"imageKey", patch.ImageKey},
		{"metadataImageKey", patch.MetadataImageKey},
	}
	for _, f := range fields {
		if f.value != nil {
			update = update.Set(expression.Name(f.name), expression.Value(*f.value))
		}
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       songKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, songbook.ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update song: %w", err)
	}

	var song songbook.Song
	if err := attributevalue.UnmarshalMap(out.Attributes, &song); err != nil {
		return nil, fmt.Errorf("failed to unmarshal song: %w", err)
	}
	return &song, nil
}

func (r *Repository) DeleteSong(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       songKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	return nil
}
