package sentinel

import "time"

// MapKind selects the rendered map product.
type MapKind string

const (
	// MapRGB is a true-color render.
	MapRGB MapKind = "rgb"
	// MapNDVI is a colorized NDVI render.
	MapNDVI MapKind = "ndvi"
)

// IndexKind selects a normalized-difference index.
type IndexKind string

const (
	// IndexNDVI measures vegetation vigor (B08 vs B04).
	IndexNDVI IndexKind = "ndvi"
	// IndexNDWI measures water content (B03 vs B08).
	IndexNDWI IndexKind = "ndwi"
	// IndexNDSI measures exposed soil (B11 vs B08); positive means bare soil.
	IndexNDSI IndexKind = "ndsi"
)

// BBox is a WGS84 bounding box: [minLon, minLat, maxLon, maxLat].
type BBox [4]float64

// TimeRange bounds the acquisition window of a request.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// LastDays returns the window ending at now and spanning the given number
// of days back.
func LastDays(now time.Time, days int) TimeRange {
	return TimeRange{From: now.AddDate(0, 0, -days), To: now}
}

// IndexStats is the zonal aggregate of one index over the field polygon.
type IndexStats struct {
	Index IndexKind `json:"index"`
	Mean  float64   `json:"mean"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Date  time.Time `json:"date"`
}

// Interpretation describes an NDSI result in agronomic terms. Other indices
// return an empty string.
func (s *IndexStats) Interpretation() string {
	if s.Index != IndexNDSI {
		return ""
	}
	if s.Mean > 0 {
		return "exposed soil"
	}
	return "vegetation cover"
}

// DailyStats is one day of a zonal-statistics series.
type DailyStats struct {
	Date        time.Time `json:"date"`
	Mean        float64   `json:"mean"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	SampleCount int64     `json:"sample_count"`
}

// tokenResponse is the identity server's client-credentials grant reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// processRequest is the Process API body.
type processRequest struct {
	Input      processInput  `json:"input"`
	Output     processOutput `json:"output"`
	Evalscript string        `json:"evalscript"`
}

type processInput struct {
	Bounds processBounds `json:"bounds"`
	Data   []processData `json:"data"`
}

type processBounds struct {
	BBox       *BBox            `json:"bbox,omitempty"`
	Geometry   *geometry        `json:"geometry,omitempty"`
	Properties boundsProperties `json:"properties"`
}

type boundsProperties struct {
	CRS string `json:"crs"`
}

type geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

type processData struct {
	Type       string     `json:"type"`
	DataFilter dataFilter `json:"dataFilter"`
}

type dataFilter struct {
	TimeRange       isoTimeRange `json:"timeRange"`
	MosaickingOrder string       `json:"mosaickingOrder,omitempty"`
	MaxCloudCover   *float64     `json:"maxCloudCoverage,omitempty"`
}

type isoTimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type processOutput struct {
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Responses []processResponse `json:"responses"`
}

type processResponse struct {
	Identifier string         `json:"identifier"`
	Format     responseFormat `json:"format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// statsRequest is the Statistical API body.
type statsRequest struct {
	Input       processInput     `json:"input"`
	Aggregation statsAggregation `json:"aggregation"`
}

type statsAggregation struct {
	TimeRange           isoTimeRange  `json:"timeRange"`
	AggregationInterval statsInterval `json:"aggregationInterval"`
	Width               int           `json:"width"`
	Height              int           `json:"height"`
	Evalscript          string        `json:"evalscript"`
}

type statsInterval struct {
	Of string `json:"of"`
}

// statsResponse is the Statistical API reply.
type statsResponse struct {
	Data []statsEntry `json:"data"`
}

type statsEntry struct {
	Interval struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"interval"`
	Outputs map[string]statsOutput `json:"outputs"`
}

type statsOutput struct {
	Bands map[string]struct {
		Stats bandStats `json:"stats"`
	} `json:"bands"`
}

type bandStats struct {
	Mean        float64 `json:"mean"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int64   `json:"sampleCount"`
}
