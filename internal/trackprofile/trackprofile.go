// Package trackprofile implements C12 (a supplemented feature, not present
// in the distilled spec but present in the teacher's own gpx.go/gpx-analyze.go):
// annotating a GPX track's elevation from an assembled grid, and computing
// per-segment profile statistics. Generalized from the teacher's
// single-UTM-tile point lookup to bilinearly sampling the multi-tile,
// NaN-aware assembled grid.
package trackprofile

import (
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"dem-terrain-render/internal/assembly"
	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/rendererr"
	"dem-terrain-render/internal/resample"
)

// TrackProfile mirrors the teacher's GpxAnalyzeResult shape (gpx-analyze.go),
// generalized to not assume a single UTM zone.
type TrackProfile struct {
	Version     string
	Name        string
	Description string
	Creator     string
	Time        *time.Time
	TotalPoints int
	Tracks      []TrackResult
}

// TrackResult mirrors GpxAnalyzeTrackResult.
type TrackResult struct {
	Name        string
	Comment     string
	Description string
	Source      string
	Type        string
	Segments    []SegmentResult
}

// SegmentResult mirrors GpxAnalyzeSegmentResult.
type SegmentResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  float64
	Points    int
	Length2D  float64
	Length3D  float64

	MovingTime      float64
	StoppedTime     float64
	MovingDistance  float64
	StoppedDistance float64

	MaxLatitude  float64
	MaxLongitude float64
	MinLatitude  float64
	MinLongitude float64

	UphillWMA          float64
	DownhillWMA        float64
	UphillUnfiltered   float64
	DownhillUnfiltered float64

	PointDetails []PointDetail // nil unless verbose detail was requested
}

// PointDetail mirrors GpxAnalyzePointDetail.
type PointDetail struct {
	Timestamp          time.Time
	TimeDifference     int64
	Latitude           float64
	Longitude          float64
	Distance           float64
	Elevation          float64
	CumulativeUphill   float64
	CumulativeDownhill float64
}

// AnnotateTrack parses gpxData, bilinearly samples source's assembled grid
// for every track/route/waypoint point, rewrites each point's elevation,
// and re-serializes. A point whose 3x3 neighborhood is entirely NaN is left
// unannotated (its original elevation, if any, is kept) and counted in
// unannotated.
func AnnotateTrack(gpxData []byte, source *assembly.Result, verbose bool) (annotated []byte, profile TrackProfile, unannotated int, err error) {
	parsed, err := gpx.ParseBytes(gpxData)
	if err != nil {
		return nil, TrackProfile{}, 0, rendererr.Wrap(rendererr.UnreadableHeader, "gpx data", err)
	}

	grid, err := source.Load()
	if err != nil {
		return nil, TrackProfile{}, 0, err
	}

	annotate := func(point *gpx.GPXPoint) {
		row := (source.North - point.Latitude) * source.PixelsPerDegree
		col := (point.Longitude - source.West) * source.PixelsPerDegree
		if v, ok := sampleWithFallback(grid, row, col); ok {
			point.Elevation.SetValue(v)
		} else {
			unannotated++
		}
	}

	for i := range parsed.Waypoints {
		annotate(&parsed.Waypoints[i])
	}
	for i := range parsed.Routes {
		for j := range parsed.Routes[i].Points {
			annotate(&parsed.Routes[i].Points[j])
		}
	}
	for i := range parsed.Tracks {
		for j := range parsed.Tracks[i].Segments {
			for k := range parsed.Tracks[i].Segments[j].Points {
				annotate(&parsed.Tracks[i].Segments[j].Points[k])
			}
		}
	}

	xmlBytes, err := parsed.ToXml(gpx.ToXmlParams{Indent: true})
	if err != nil {
		return nil, TrackProfile{}, unannotated, rendererr.Wrap(rendererr.WriteError, "gpx data", err)
	}

	profile = analyze(parsed, verbose)
	return xmlBytes, profile, unannotated, nil
}

// AnalyzeTrack parses gpxData and returns its profile statistics without
// modifying elevations.
func AnalyzeTrack(gpxData []byte, verbose bool) (TrackProfile, error) {
	parsed, err := gpx.ParseBytes(gpxData)
	if err != nil {
		return TrackProfile{}, rendererr.Wrap(rendererr.UnreadableHeader, "gpx data", err)
	}
	return analyze(parsed, verbose), nil
}

// sampleWithFallback bilinearly samples (row, col); if that sample is NaN
// (all 4 bilinear corners no-data), it falls back to the nearest valid
// sample within a 3x3 window centered on the rounded integer cell
// (SPEC_FULL.md §11.1).
func sampleWithFallback(grid *demio.Grid, row, col float64) (float64, bool) {
	if v, ok := resample.PointSample(grid, row, col); ok {
		return float64(v), true
	}
	cy, cx := int(row+0.5), int(col+0.5)
	// center first, then edge neighbors, then corners: nearest first
	offsets := [9][2]int{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	for _, o := range offsets {
		v := grid.At(cy+o[0], cx+o[1])
		if v == v { // not NaN
			return float64(v), true
		}
	}
	return 0, false
}

func analyze(parsed *gpx.GPX, verbose bool) TrackProfile {
	profile := TrackProfile{
		Version:     parsed.Version,
		Name:        parsed.Name,
		Description: parsed.Description,
		Creator:     parsed.Creator,
		Time:        parsed.Time,
		TotalPoints: parsed.GetTrackPointsNo(),
	}

	for _, track := range parsed.Tracks {
		trackResult := TrackResult{
			Name: track.Name, Comment: track.Comment,
			Description: track.Description, Source: track.Source, Type: track.Type,
		}
		for _, segment := range track.Segments {
			uphillUnfiltered, downhillUnfiltered := uphillDownhillUnfiltered(segment.Points)
			timeBounds := segment.TimeBounds()
			movingData := segment.MovingData()
			bounds := segment.Bounds()
			upDownWMA := segment.UphillDownhill()

			segResult := SegmentResult{
				StartTime: timeBounds.StartTime, EndTime: timeBounds.EndTime,
				Duration: segment.Duration(), Points: segment.GetTrackPointsNo(),
				Length2D: segment.Length2D(), Length3D: segment.Length3D(),
				MovingTime: movingData.MovingTime, StoppedTime: movingData.StoppedTime,
				MovingDistance: movingData.MovingDistance, StoppedDistance: movingData.StoppedDistance,
				MaxLatitude: bounds.MaxLatitude, MaxLongitude: bounds.MaxLongitude,
				MinLatitude: bounds.MinLatitude, MinLongitude: bounds.MinLongitude,
				UphillWMA: upDownWMA.Uphill, DownhillWMA: upDownWMA.Downhill,
				UphillUnfiltered: uphillUnfiltered, DownhillUnfiltered: downhillUnfiltered,
			}
			if verbose {
				segResult.PointDetails = pointDetails(segment.Points)
			}
			trackResult.Segments = append(trackResult.Segments, segResult)
		}
		profile.Tracks = append(profile.Tracks, trackResult)
	}
	return profile
}

func uphillDownhillUnfiltered(points []gpx.GPXPoint) (uphill, downhill float64) {
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Elevation.Value()
		cur := points[i].Elevation.Value()
		if cur > prev {
			uphill += cur - prev
		} else {
			downhill += prev - cur
		}
	}
	return uphill, downhill
}

func pointDetails(points []gpx.GPXPoint) []PointDetail {
	if len(points) == 0 {
		return nil
	}
	details := make([]PointDetail, len(points))
	details[0] = PointDetail{
		Timestamp: points[0].Timestamp, Latitude: points[0].Latitude,
		Longitude: points[0].Longitude, Elevation: points[0].Elevation.Value(),
	}
	uphill, downhill := 0.0, 0.0
	for i := 1; i < len(points); i++ {
		prevPoint := points[i-1]
		curPoint := points[i]
		diff := curPoint.Elevation.Value() - prevPoint.Elevation.Value()
		if diff > 0 {
			uphill += diff
		} else {
			downhill -= diff
		}
		details[i] = PointDetail{
			Timestamp:          curPoint.Timestamp,
			TimeDifference:     int64(curPoint.Timestamp.Sub(prevPoint.Timestamp).Seconds()),
			Latitude:           curPoint.Latitude,
			Longitude:          curPoint.Longitude,
			Distance:           curPoint.Distance2D(&prevPoint),
			Elevation:          curPoint.Elevation.Value(),
			CumulativeUphill:   uphill,
			CumulativeDownhill: downhill,
		}
	}
	return details
}
