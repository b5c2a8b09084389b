package domain

import "errors"

// Validation errors (user-correctable input)
var (
	ErrMissingLine = errors.New("vehicle line is required: include vehicle_type/brand/model/line to predict")
)

// Insufficient history errors (raised during training)
var (
	ErrNoTrainingData      = errors.New("no transactions available to train in the requested range")
	ErrInsufficientHistory = errors.New("not enough monthly history to train a model")
)

// Not found errors
var (
	ErrNoTrainedModel   = errors.New("no trained model exists yet")
	ErrNoSegmentHistory = errors.New("no history found for the requested segment: verify vehicle_type/brand/model/line or retrain with data covering it")
)

// Configuration errors
var (
	ErrNoDataSource = errors.New("no transaction source or feature store configured")
)
