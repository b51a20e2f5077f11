package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest("  golang ", model.ModeFull, "duckduckgo", "jina", "2, 0,", 3)
	require.NoError(t, err)

	assert.Equal(t, "golang", req.Query.Text)
	assert.Equal(t, model.ModeFull, req.Constraints.SearchMode)
	assert.Equal(t, "duckduckgo", req.Constraints.Backend)
	assert.Equal(t, "jina", req.Constraints.FetchEngine)
	assert.Equal(t, model.PickIDs{2, 0}, req.Constraints.PickIDs)
	require.NotNil(t, req.Budget)
	assert.Equal(t, 3, *req.Budget.MaxFetchPages)

	req, err = buildRequest("q", model.ModeSimple, "", "", "", -1)
	require.NoError(t, err)
	assert.Nil(t, req.Budget)
	assert.Empty(t, req.Constraints.PickIDs)

	_, err = buildRequest("q", model.ModeSimple, "", "", "1,x", -1)
	assert.Error(t, err)
}
