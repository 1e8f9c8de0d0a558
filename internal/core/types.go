package core

import "mfcore/pkg/domain"

type (
	EntityType             = domain.EntityType
	InterpolationMode      = domain.InterpolationMode
	ValueType              = domain.ValueType
	Base                   = domain.Base
	Collection             = domain.Collection
	MovingFeature          = domain.MovingFeature
	TemporalGeometryTrack  = domain.TemporalGeometryTrack
	TemporalPropertySeries = domain.TemporalPropertySeries
	TrackSample            = domain.TrackSample
	SeriesValue            = domain.SeriesValue
	TrackRef               = domain.TrackRef
	SeriesRef              = domain.SeriesRef
	TimeRange              = domain.TimeRange
	FeaturePage            = domain.FeaturePage
	Transaction            = domain.Transaction
	TransactionView        = domain.TransactionView
	PersistentStore        = domain.PersistentStore
)

const (
	EntityCollection = domain.EntityCollection
	EntityFeature    = domain.EntityFeature
	EntityTrack      = domain.EntityTrack
	EntitySeries     = domain.EntitySeries
)

const (
	InterpolationLinear   = domain.InterpolationLinear
	InterpolationStep     = domain.InterpolationStep
	InterpolationDiscrete = domain.InterpolationDiscrete
)

const (
	ValueFloat = domain.ValueFloat
	ValueText  = domain.ValueText
)
