package site

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumedCreationDate(t *testing.T) {
	admin := time.Date(2019, 5, 1, 10, 0, 0, 0, time.UTC)
	older := time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC)
	newer := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	// sin contenido: solo cuenta el admin
	assert.Equal(t, admin, Info{AdminsRegisteredAt: admin}.AssumedCreationDate())

	assert.Equal(t, older, Info{AdminsRegisteredAt: admin, FirstContentAt: &older}.AssumedCreationDate())
	assert.Equal(t, admin, Info{AdminsRegisteredAt: admin, FirstContentAt: &newer}.AssumedCreationDate())

	assert.Equal(t, "2018-01-02 03:04:05", older.Format(DateLayout))
}

func TestStaticProvider(t *testing.T) {
	p := Static{Name: "Blog", Locale: "es_AR"}
	info, err := p.SiteInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Blog", info.Name)
	assert.Equal(t, "es_AR", info.Locale)
}

func TestRestEndpoint(t *testing.T) {
	i := Info{SiteURL: "https://example.com/"}
	assert.Equal(t, "https://example.com/wp-json/wp_service_client/v1/do_action", i.RestEndpoint("wp_service_client/v1", "do_action"))

	i.RestURL = "https://api.example.com/rest/"
	assert.Equal(t, "https://api.example.com/rest/ns/v1/do_action", i.RestEndpoint("/ns/v1/", "/do_action"))
}
