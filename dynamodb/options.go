package dynamodb

import (
	"errors"
	"time"
)

// Option is a functional option for configuring a [Client].
type Option func(*Options)

// Options holds the configuration for a [Client]. Use [Option] functions
// (such as [WithOwnerIndexName] or [WithConsistentRead]) to customise the
// defaults.
type Options struct {
	ownerIndexName          string
	consistentRead          bool
	apiMaxRetryAttempts     int
	apiMaxRetryBackoffDelay time.Duration
	dynamoDBAPI             API
	logger                  Logger
}

func newOptions() *Options {
	return &Options{
		ownerIndexName:          GSIOwner,
		consistentRead:          true,
		apiMaxRetryAttempts:     3,
		apiMaxRetryBackoffDelay: 5 * time.Second,
	}
}

func (o *Options) validate() error {
	if o.ownerIndexName == "" {
		return errors.New("owner index name cannot be empty")
	}

	if o.apiMaxRetryAttempts < 1 || o.apiMaxRetryAttempts > 10 {
		return errors.New("max DynamoDB API attempts must be between 1 and 10")
	}

	if o.apiMaxRetryBackoffDelay < 100*time.Millisecond || o.apiMaxRetryBackoffDelay > 30*time.Second {
		return errors.New("max DynamoDB API retry backoff delay must be between 100 milliseconds and 30 seconds")
	}

	return nil
}

// WithOwnerIndexName sets the name of the Global Secondary Index keyed by
// owner. The default is [GSIOwner].
func WithOwnerIndexName(name string) Option {
	return func(o *Options) {
		o.ownerIndexName = name
	}
}

// WithConsistentRead controls whether single-item reads use strongly
// consistent reads. The default is true. Queries against the owner index are
// always eventually consistent, since DynamoDB does not support consistent
// reads on Global Secondary Indexes.
func WithConsistentRead(consistent bool) Option {
	return func(o *Options) {
		o.consistentRead = consistent
	}
}

// WithAPIMaxRetryAttempts sets the maximum number of attempts the AWS SDK
// makes for a single DynamoDB API call, including the first one. The client
// itself never retries a failed call. Must be between 1 and 10. Default: 3.
// Ignored when a custom API is supplied with [WithAPI].
func WithAPIMaxRetryAttempts(n int) Option {
	return func(o *Options) {
		o.apiMaxRetryAttempts = n
	}
}

// WithAPIMaxRetryBackoffDelay sets the maximum backoff delay between SDK
// retry attempts. Must be between 100 milliseconds and 30 seconds.
// Default: 5 seconds. Ignored when a custom API is supplied with [WithAPI].
func WithAPIMaxRetryBackoffDelay(d time.Duration) Option {
	return func(o *Options) {
		o.apiMaxRetryBackoffDelay = d
	}
}

// WithAPI sets a custom [API] implementation. This is useful when a custom
// DynamoDB configuration is required, or for injecting mocks in tests.
func WithAPI(api API) Option {
	return func(o *Options) {
		o.dynamoDBAPI = api
	}
}

// WithLogger sets the fallback logger used when the request context does not
// carry one.
func WithLogger(logger Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}
