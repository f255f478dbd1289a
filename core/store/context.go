package store

import (
	"fmt"
)

// store/IOContext.java

type IOContextType int

const (
	IO_CONTEXT_TYPE_MERGE   = IOContextType(1)
	IO_CONTEXT_TYPE_READ    = IOContextType(2)
	IO_CONTEXT_TYPE_FLUSH   = IOContextType(3)
	IO_CONTEXT_TYPE_DEFAULT = IOContextType(4)
)

func (t IOContextType) String() string {
	switch t {
	case IO_CONTEXT_TYPE_MERGE:
		return "MERGE"
	case IO_CONTEXT_TYPE_READ:
		return "READ"
	case IO_CONTEXT_TYPE_FLUSH:
		return "FLUSH"
	default:
		return "DEFAULT"
	}
}

var (
	IO_CONTEXT_DEFAULT  = NewIOContextFromType(IO_CONTEXT_TYPE_DEFAULT)
	IO_CONTEXT_READONCE = NewIOContextBool(true)
	IO_CONTEXT_READ     = NewIOContextBool(false)
)

/*
IOContext holds additional details on the merge/search context. A
IOContext object can never be initialized as nil as passed as a
parameter to either OpenInput() or CreateOutput()

Implementations may use it to pick buffer sizes or a caching policy,
but must not depend on it for correctness.
*/
type IOContext struct {
	context   IOContextType
	MergeInfo *MergeInfo
	FlushInfo *FlushInfo
	readOnce  bool
}

func NewIOContextForFlush(flushInfo *FlushInfo) IOContext {
	assert2(flushInfo != nil, "FlushInfo must not be nil if context is FLUSH")
	return IOContext{
		context:   IO_CONTEXT_TYPE_FLUSH,
		FlushInfo: flushInfo,
	}
}

func NewIOContextFromType(context IOContextType) IOContext {
	assert2(context != IO_CONTEXT_TYPE_MERGE, "Use NewIOContextForMerge() to create a MERGE IOContext")
	assert2(context != IO_CONTEXT_TYPE_FLUSH, "Use NewIOContextForFlush() to create a FLUSH IOContext")
	return IOContext{context: context}
}

func NewIOContextBool(readOnce bool) IOContext {
	return IOContext{
		context:  IO_CONTEXT_TYPE_READ,
		readOnce: readOnce,
	}
}

func NewIOContextForMerge(mergeInfo *MergeInfo) IOContext {
	assert2(mergeInfo != nil, "MergeInfo must not be nil if context is MERGE")
	return IOContext{
		context:   IO_CONTEXT_TYPE_MERGE,
		MergeInfo: mergeInfo,
	}
}

/*
This constructor is used to initialize a IOContext instance with a
new value for the readOnce variable.
*/
func NewIOContextWithReadOnce(ctx IOContext, readOnce bool) IOContext {
	ctx.readOnce = readOnce
	return ctx
}

func (ctx IOContext) Type() IOContextType { return ctx.context }

func (ctx IOContext) ReadOnce() bool { return ctx.readOnce }

func (ctx IOContext) String() string {
	return fmt.Sprintf("IOContext [context=%v, mergeInfo=%v, flushInfo=%v, readOnce=%v]",
		ctx.context, ctx.MergeInfo, ctx.FlushInfo, ctx.readOnce)
}

/*
A FlushInfo provides information required for a FLUSH context. It is
used as part of an IOContext in case of FLUSH context.
*/
type FlushInfo struct {
	NumDocs              int
	EstimatedSegmentSize int64
}

func (fi *FlushInfo) String() string {
	return fmt.Sprintf("FlushInfo [numDocs=%v, estimatedSegmentSize=%v]",
		fi.NumDocs, fi.EstimatedSegmentSize)
}

/*
A MergeInfo provides information required for a MERGE context. It is
used as part of an IOContext in case of MERGE context.
*/
type MergeInfo struct {
	TotalDocCount       int
	EstimatedMergeBytes int64
	IsExternal          bool
	MergeMaxNumSegments int
}

func (mi *MergeInfo) String() string {
	return fmt.Sprintf("MergeInfo [totalDocCount=%v, estimatedMergeBytes=%v, isExternal=%v, mergeMaxNumSegments=%v]",
		mi.TotalDocCount, mi.EstimatedMergeBytes, mi.IsExternal, mi.MergeMaxNumSegments)
}
