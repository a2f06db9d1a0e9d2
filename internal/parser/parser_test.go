package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidstone/mediascan/internal/models"
)

func intp(v int) *int { return &v }

func TestParseMovie(t *testing.T) {
	p := New()
	v, err := p.Parse("/m/Inception (2010).mkv")
	require.NoError(t, err)

	assert.Equal(t, models.GuessKindMovie, v.Guess.Kind)
	assert.Equal(t, "Inception", v.Guess.Title)
	assert.Equal(t, []int{2010}, v.Guess.Years)
	assert.Empty(t, v.Guess.Episodes)
	assert.Equal(t, 1, v.Version)
	assert.Nil(t, v.Part)
}

func TestParseMovieDotsAsSeparators(t *testing.T) {
	p := New()
	v, err := p.Parse("/m/The.Matrix.1999.1080p.BluRay.x264.mkv")
	require.NoError(t, err)

	assert.Equal(t, models.GuessKindMovie, v.Guess.Kind)
	assert.Equal(t, "The Matrix", v.Guess.Title)
	assert.Equal(t, []int{1999}, v.Guess.Years)
}

func TestParseEpisode(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/Attack on Titan S01E01.mkv")
	require.NoError(t, err)

	assert.Equal(t, models.GuessKindEpisode, v.Guess.Kind)
	assert.Equal(t, "Attack on Titan", v.Guess.Title)
	assert.Equal(t, []models.GuessEpisode{{Season: intp(1), Episode: 1}}, v.Guess.Episodes)
}

func TestParseMultiEpisode(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/Attack on Titan S01E01E02.mkv")
	require.NoError(t, err)

	assert.Equal(t, []models.GuessEpisode{
		{Season: intp(1), Episode: 1},
		{Season: intp(1), Episode: 2},
	}, v.Guess.Episodes)
}

func TestParseAbsoluteNumberingDropsYearSeason(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/One Piece (1999) 1089.mkv")
	require.NoError(t, err)

	assert.Equal(t, models.GuessKindEpisode, v.Guess.Kind)
	assert.Equal(t, "One Piece", v.Guess.Title)
	assert.Equal(t, []int{1999}, v.Guess.Years)
	require.Len(t, v.Guess.Episodes, 1)
	assert.Nil(t, v.Guess.Episodes[0].Season)
	assert.Equal(t, 1089, v.Guess.Episodes[0].Episode)
}

func TestParseSeasonPackRange(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/[Erai-raws] Spy x Family Season 2 - 08 [1080p][Multiple Subtitle].mkv")
	require.NoError(t, err)

	assert.Equal(t, "Spy x Family", v.Guess.Title)
	assert.Equal(t, []models.GuessEpisode{{Season: intp(2), Episode: 8}}, v.Guess.Episodes)
}

func TestParseTitleNumberFixup(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/[Erai-raws] Zom 100 - Zombie ni Naru made ni Shitai 100 no Koto - 01 [1080p].mkv")
	require.NoError(t, err)

	assert.Equal(t, "Zom 100", v.Guess.Title)
	require.Len(t, v.Guess.Episodes, 1)
	assert.Equal(t, 1, v.Guess.Episodes[0].Episode)
}

func TestParseUnlistTitles(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/Demon Slayer - Kimetsu no Yaiba - S04E10 - Love Hashira Mitsuri Kanroji WEBDL-1080p.mkv")
	require.NoError(t, err)

	assert.Equal(t, "Demon Slayer - Kimetsu no Yaiba", v.Guess.Title)
	assert.Equal(t, []models.GuessEpisode{{Season: intp(4), Episode: 10}}, v.Guess.Episodes)
}

func TestParseEpisodeTitlePromotion(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/[Erai-raws] Youkoso Jitsuryoku Shijou Shugi no Kyoushitsu e S3 - 05 [1080p].mkv")
	require.NoError(t, err)

	assert.Equal(t, "Youkoso Jitsuryoku Shijou Shugi no Kyoushitsu e", v.Guess.Title)
	assert.Equal(t, []models.GuessEpisode{{Season: intp(3), Episode: 5}}, v.Guess.Episodes)
}

func TestParseXemFixup(t *testing.T) {
	p := New()
	p.SetExpectedTitles([]string{"Owarimonogatari S2"})
	v, err := p.Parse("/s/Owarimonogatari S2 E15.mkv")
	require.NoError(t, err)

	assert.Equal(t, "Owarimonogatari S2", v.Guess.Title)
	require.Len(t, v.Guess.Episodes, 1)
	assert.Equal(t, 15, v.Guess.Episodes[0].Episode)
	assert.Nil(t, v.Guess.Episodes[0].Season)
}

func TestParseSeasonFromParentDirectory(t *testing.T) {
	p := New()
	v, err := p.Parse("/s/Dark/Season 2/Dark - 05.mkv")
	require.NoError(t, err)

	assert.Equal(t, "Dark", v.Guess.Title)
	assert.Equal(t, []models.GuessEpisode{{Season: intp(2), Episode: 5}}, v.Guess.Episodes)
}

func TestParseTitleYearNotEpisode(t *testing.T) {
	p := New()
	v, err := p.Parse("/m/Blade Runner 2049 (2017).mkv")
	require.NoError(t, err)

	assert.Equal(t, models.GuessKindMovie, v.Guess.Kind)
	assert.Equal(t, "Blade Runner 2049", v.Guess.Title)
	assert.Equal(t, []int{2017}, v.Guess.Years)
}

func TestParseInlineProviderIDs(t *testing.T) {
	p := New()
	v, err := p.Parse("/m/Bubble (2022) [tmdbid-912598].mkv")
	require.NoError(t, err)

	assert.Equal(t, "Bubble", v.Guess.Title)
	assert.Equal(t, "912598", v.Guess.ExternalID["themoviedatabase"])
}

func TestParseVersionAndPart(t *testing.T) {
	p := New()
	v, err := p.Parse("/m/Whiplash (2014) part 2 v2.mkv")
	require.NoError(t, err)

	assert.Equal(t, 2, v.Version)
	require.NotNil(t, v.Part)
	assert.Equal(t, 2, *v.Part)
}

func TestRenderingHashIgnoresVersionAndPart(t *testing.T) {
	p := New()
	plain, err := p.Parse("/m/Whiplash (2014).mkv")
	require.NoError(t, err)
	versioned, err := p.Parse("/m/Whiplash (2014) v2.mkv")
	require.NoError(t, err)

	assert.Equal(t, plain.RenderingHash, versioned.RenderingHash)

	other, err := p.Parse("/m/Whiplash (2013).mkv")
	require.NoError(t, err)
	assert.NotEqual(t, plain.RenderingHash, other.RenderingHash)
}

func TestParseExtra(t *testing.T) {
	p := New()
	v, err := p.Parse("/m/Inception (2010)/trailers/teaser.mkv")
	require.NoError(t, err)

	assert.Equal(t, models.GuessKindExtra, v.Guess.Kind)
	require.NotNil(t, v.Guess.ExtraKind)
	assert.Equal(t, "trailer", *v.Guess.ExtraKind)

	v, err = p.Parse("/m/Inception (2010)/Inception-trailer.mkv")
	require.NoError(t, err)
	assert.Equal(t, models.GuessKindExtra, v.Guess.Kind)
}

func TestParseNoTitleFails(t *testing.T) {
	p := New()
	_, err := p.Parse("/1080p.mkv")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "one piece", Clean("One.Piece (1999)"))
	assert.Equal(t, "jojo's bizarre adventure", Clean("JoJo's_Bizarre-Adventure"))
}
