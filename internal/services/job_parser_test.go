package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/competencymatrix/internal/contract"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

func newTestParser(pages []string, extractor synth.Synthesizer, target string) *JobParser {
	p := NewJobParser(fakeSource{testURI: []byte("%PDF-1.7 cards")}, NewMemorySegmentCache(), extractor, nil, JobParserConfig{
		SynthTarget:          target,
		ScannedTextThreshold: 1,
	})
	p.pdf = stubPDFOps(pages)
	return p
}

func TestJobParser_Listing(t *testing.T) {
	p := newTestParser(cardPages(), nil, "")

	resp, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI})
	require.NoError(t, err)

	assert.Equal(t, models.ParseStatusListing, resp.Status)
	require.NotNil(t, resp.Listing)
	assert.Nil(t, resp.Extracted)
	assert.Equal(t, 2, resp.Listing.JobCount)
	assert.Equal(t, ListingNote, resp.Listing.Note)
	assert.Equal(t, []models.JobSegment{
		{Index: 0, PageStart: 0, PageEnd: 1, Title: "مهندس مدني"},
		{Index: 1, PageStart: 2, PageEnd: 2, Title: "محاسب أول"},
	}, resp.Listing.Jobs)
}

func TestJobParser_ListingUsesCache(t *testing.T) {
	p := newTestParser(cardPages(), nil, "")
	_, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI})
	require.NoError(t, err)

	p.pdf.pageTexts = func([]byte) ([]string, error) {
		return nil, errors.New("should not rescan")
	}
	resp, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Listing.JobCount)
}

func TestJobParser_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		pages   []string
		req     models.JobParseRequest
		message string
	}{
		{"missing uri", cardPages(), models.JobParseRequest{}, MsgNoDocument},
		{"unknown document", cardPages(), models.JobParseRequest{GCSUri: "gs://uploads/other.pdf"}, MsgNoDocument},
		{"no job cards", []string{"صفحة عادية", "أخرى"}, models.JobParseRequest{GCSUri: testURI}, MsgNoJobCards},
		{"index too large", cardPages(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(2)}, "out of range. Must be 0..1"},
		{"negative index", cardPages(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(-1)}, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(tt.pages, nil, "")
			_, err := p.Process(context.Background(), tt.req)

			var ie *InputError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Contains(t, ie.Error(), tt.message)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestJobParser_DegradedWithoutTarget(t *testing.T) {
	extractor := &scriptedSynth{outputs: []string{jobJSON}}
	p := newTestParser(cardPages(), extractor, "")

	resp, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(0)})
	require.NoError(t, err)

	assert.Zero(t, extractor.calls())
	ex := resp.Extracted
	require.NotNil(t, ex)
	assert.Equal(t, "مهندس مدني", ex.Job.Title())
	assert.Nil(t, ex.Job.JobCode)
	assert.Nil(t, ex.Job.Duties)
	assert.Equal(t, SkippedWarning, ex.Job.AdditionalFields["_warning"])
	assert.Equal(t, models.ExtractionMethodSkipped, ex.Job.Extraction.Method)
	assert.Equal(t, len(cardPages()[0])+1+len(cardPages()[1]), ex.Debug["text_hint_chars"])
}

func TestJobParser_ExtractsFromPDF(t *testing.T) {
	extractor := &scriptedSynth{outputs: []string{"```json\n" + jobJSON + "\n```"}}
	p := newTestParser(cardPages(), extractor, "proj")
	snaps := &memorySnapshots{}
	p.snapshots = snaps

	resp, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(0)})
	require.NoError(t, err)

	assert.Equal(t, models.ParseStatusExtracted, resp.Status)
	job := resp.Extracted.Job
	assert.Equal(t, "EN12", models.Value(job.JobCode))
	assert.Equal(t, []string{"يراجع المخططات", "يشرف على التنفيذ"}, job.Duties)
	assert.Equal(t, &models.ExtractionInfo{Method: models.ExtractionMethodPDF, Attempt: 1}, job.Extraction)
	assert.Empty(t, resp.Extracted.Warning)

	require.Equal(t, 1, extractor.calls())
	req := extractor.requests[0]
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, synth.MIMETypePDF, req.Attachments[0].MIMEType)
	assert.Equal(t, "%PDF sub 0-1", string(req.Attachments[0].Data))
	assert.Contains(t, req.Hint, "تكملة الواجبات")

	assert.Len(t, snaps.saved, 1)
	for name := range snaps.saved {
		assert.True(t, strings.HasSuffix(name, "/000.json"), name)
	}
}

func TestJobParser_ScannedDropsHint(t *testing.T) {
	extractor := &scriptedSynth{outputs: []string{jobJSON}}
	p := newTestParser(cardPages(), extractor, "proj")
	p.config.ScannedTextThreshold = 10000

	_, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(1)})
	require.NoError(t, err)
	assert.Empty(t, extractor.requests[0].Hint)
}

func TestJobParser_VisionFallback(t *testing.T) {
	extractor := &scriptedSynth{outputs: []string{"not json", `["array"]`, jobJSON}}
	p := newTestParser(cardPages(), extractor, "proj")

	resp, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(0)})
	require.NoError(t, err)

	require.Equal(t, 3, extractor.calls())
	vision := extractor.requests[2]
	require.Len(t, vision.Attachments, 2)
	assert.Equal(t, synth.MIMETypePNG, vision.Attachments[0].MIMEType)
	assert.Empty(t, vision.Hint)

	assert.Equal(t, &models.ExtractionInfo{Method: models.ExtractionMethodVision, Attempt: 3}, resp.Extracted.Job.Extraction)
	assert.True(t, strings.HasPrefix(resp.Extracted.Warning, "PDF parse failed twice: "))
}

func TestJobParser_AllAttemptsFail(t *testing.T) {
	boom := errors.New("model unavailable")
	extractor := &scriptedSynth{errs: []error{boom, boom, boom}}
	p := newTestParser(cardPages(), extractor, "proj")

	_, err := p.Process(context.Background(), models.JobParseRequest{GCSUri: testURI, SelectedJobIndex: intPtr(0)})

	var ce *contract.ContractError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 3, ce.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsInputError(err))
}
