package sentinel

// Evalscripts for the Process and Statistical APIs. Sentinel-2 L2A band
// reference: B02 blue, B03 green, B04 red, B08 NIR, B11 SWIR.

const rgbEvalscript = `//VERSION=3
function setup() {
    return {
        input: ["B04", "B03", "B02", "dataMask"],
        output: { bands: 4 }
    };
}

function evaluatePixel(sample) {
    return [2.5 * sample.B04, 2.5 * sample.B03, 2.5 * sample.B02, sample.dataMask];
}
`

// ndviColorEvalscript maps NDVI onto a red-yellow-green ramp; gray marks
// water and clouds.
const ndviColorEvalscript = `//VERSION=3
function setup() {
    return {
        input: ["B04", "B08", "dataMask"],
        output: { bands: 4 }
    };
}

function evaluatePixel(sample) {
    let ndvi = (sample.B08 - sample.B04) / (sample.B08 + sample.B04);

    let r, g, b;
    if (ndvi < 0) {
        r = 0.5; g = 0.5; b = 0.5;
    } else if (ndvi < 0.2) {
        r = 0.8; g = 0.2; b = 0.1;
    } else if (ndvi < 0.4) {
        r = 0.9; g = 0.6; b = 0.1;
    } else if (ndvi < 0.6) {
        r = 0.9; g = 0.9; b = 0.2;
    } else if (ndvi < 0.8) {
        r = 0.4; g = 0.8; b = 0.2;
    } else {
        r = 0.1; g = 0.6; b = 0.1;
    }

    return [r, g, b, sample.dataMask];
}
`

const ndviStatsEvalscript = `//VERSION=3
function setup() {
    return {
        input: [{ bands: ["B04", "B08", "dataMask"] }],
        output: [
            { id: "ndvi", bands: 1, sampleType: "FLOAT32" },
            { id: "dataMask", bands: 1 }
        ]
    };
}

function evaluatePixel(samples) {
    let ndvi = (samples.B08 - samples.B04) / (samples.B08 + samples.B04);
    return { ndvi: [ndvi], dataMask: [samples.dataMask] };
}
`

const ndwiStatsEvalscript = `//VERSION=3
function setup() {
    return {
        input: [{ bands: ["B03", "B08", "dataMask"] }],
        output: [
            { id: "ndwi", bands: 1, sampleType: "FLOAT32" },
            { id: "dataMask", bands: 1 }
        ]
    };
}

function evaluatePixel(samples) {
    let ndwi = (samples.B03 - samples.B08) / (samples.B03 + samples.B08);
    return { ndwi: [ndwi], dataMask: [samples.dataMask] };
}
`

// NDSI here is the soil index (SWIR vs NIR): positive values indicate
// exposed soil, negative values vegetation.
const ndsiStatsEvalscript = `//VERSION=3
function setup() {
    return {
        input: [{ bands: ["B08", "B11", "dataMask"] }],
        output: [
            { id: "ndsi", bands: 1, sampleType: "FLOAT32" },
            { id: "dataMask", bands: 1 }
        ]
    };
}

function evaluatePixel(samples) {
    let ndsi = (samples.B11 - samples.B08) / (samples.B11 + samples.B08);
    return { ndsi: [ndsi], dataMask: [samples.dataMask] };
}
`

func mapEvalscript(kind MapKind) string {
	if kind == MapNDVI {
		return ndviColorEvalscript
	}
	return rgbEvalscript
}

func indexEvalscript(index IndexKind) string {
	switch index {
	case IndexNDWI:
		return ndwiStatsEvalscript
	case IndexNDSI:
		return ndsiStatsEvalscript
	default:
		return ndviStatsEvalscript
	}
}
