package software

import "fmt"

// Stats counts device calls since creation.
type Stats struct {
	// BuffersCreated counts CreateBuffer calls that succeeded, on any heap.
	BuffersCreated int
	// StagingBuffersCreated counts the upload and readback subset of BuffersCreated.
	StagingBuffersCreated int
	// BuffersDestroyed counts DestroyBuffer calls on live buffers.
	BuffersDestroyed int

	DescriptorsAllocated int
	DescriptorsFreed     int
	ViewsCreated         int

	// CopySessions counts encoders created.
	CopySessions int
	// CopyRegions counts regions recorded across all encoders.
	CopyRegions int
	// Submissions counts successful SubmitAndWait calls.
	Submissions int
	// Maps counts successful MapBuffer calls.
	Maps int
	// Dispatches counts Execute calls.
	Dispatches int

	// Snapshot values.
	LiveBuffers     int
	LiveDescriptors int
	UsedBytes       uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Buffers: %d live (%d created, %d staging, %d destroyed), %d bytes | "+
			"Descriptors: %d live, %d views | Copies: %d sessions, %d regions, %d submits | Maps: %d",
		s.LiveBuffers, s.BuffersCreated, s.StagingBuffersCreated, s.BuffersDestroyed, s.UsedBytes,
		s.LiveDescriptors, s.ViewsCreated, s.CopySessions, s.CopyRegions, s.Submissions, s.Maps,
	)
}

// Sub returns the counter deltas between s and an earlier snapshot.
// Snapshot values are taken from s.
func (s Stats) Sub(earlier Stats) Stats {
	return Stats{
		BuffersCreated:        s.BuffersCreated - earlier.BuffersCreated,
		StagingBuffersCreated: s.StagingBuffersCreated - earlier.StagingBuffersCreated,
		BuffersDestroyed:      s.BuffersDestroyed - earlier.BuffersDestroyed,
		DescriptorsAllocated:  s.DescriptorsAllocated - earlier.DescriptorsAllocated,
		DescriptorsFreed:      s.DescriptorsFreed - earlier.DescriptorsFreed,
		ViewsCreated:          s.ViewsCreated - earlier.ViewsCreated,
		CopySessions:          s.CopySessions - earlier.CopySessions,
		CopyRegions:           s.CopyRegions - earlier.CopyRegions,
		Submissions:           s.Submissions - earlier.Submissions,
		Maps:                  s.Maps - earlier.Maps,
		Dispatches:            s.Dispatches - earlier.Dispatches,
		LiveBuffers:           s.LiveBuffers,
		LiveDescriptors:       s.LiveDescriptors,
		UsedBytes:             s.UsedBytes,
	}
}
