// Package postgis implements the datasources.Datastore interface against a
// PostgreSQL/PostGIS connection, per spec §4.6.
package postgis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkb"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // import for side effect (= postgres driver) only

	"github.com/pdok/go-wfs-server/ogc/wfs/datasources"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// Config configures a PostgreSQL/PostGIS connection.
type Config struct {
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
}

func (c Config) getQueryTimeout() time.Duration {
	if c.QueryTimeout == 0 {
		return 15 * time.Second
	}
	return c.QueryTimeout
}

// PostGIS is a datasources.Datastore backed by PostgreSQL/PostGIS, one
// table (or schema-qualified relation) per feature type.
type PostGIS struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// NewPostGIS opens cfg.DSN. Feature types are matched to tables by their
// own DatasourceCollection/CollectionID, not by a runtime catalog lookup.
func NewPostGIS(cfg Config) *PostGIS {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		log.Fatalf("failed to open postgis connection: %v", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to postgis: %v", err)
	}
	return &PostGIS{db: db, queryTimeout: cfg.getQueryTimeout()}
}

func (p *PostGIS) Close() {
	_ = p.db.Close()
}

func (p *PostGIS) GetFeatures(ctx context.Context, ft *xsd.FeatureType, options datasources.FeatureOptions) (*domain.FeatureCollection, error) {
	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	idColumn := identityColumn(ft)
	query, args, err := makeFeaturesQuery(ft.CollectionID(), idColumn, options)
	if err != nil {
		return nil, fmt.Errorf("failed to build features query: %w", err)
	}

	stmt, err := p.db.PrepareNamedContext(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query %q: %w", query, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryxContext(queryCtx, args)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", query, err)
	}
	defer rows.Close()

	features, prevNext, err := domain.MapRowsToFeatures(rows, ft, readPostgisGeometry)
	if err != nil {
		return nil, err
	}

	result := &domain.FeatureCollection{
		TypeName:       ft.QName(),
		Features:       features,
		NumberReturned: len(features),
		TimeStamp:      time.Now(),
		Cursors:        domain.NewCursors(prevNext, options.Cursor.FiltersChecksum),
	}
	if options.CountPolicy == domain.CountAlways ||
		(options.CountPolicy == domain.CountFirstPageOnly && options.Cursor.FeatureID == "") {
		count, err := p.countFeatures(queryCtx, ft.CollectionID(), options)
		if err == nil {
			result.NumberMatched = &count
		}
	}
	return result, nil
}

func (p *PostGIS) GetFeatureByID(ctx context.Context, ft *xsd.FeatureType, id string) (*domain.Feature, error) {
	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	idColumn := identityColumn(ft)
	query := fmt.Sprintf("select * from %s f where f.%s = :id limit 1", ft.CollectionID(), idColumn)
	stmt, err := p.db.PrepareNamedContext(queryCtx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryxContext(queryCtx, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", query, err)
	}
	defer rows.Close()

	features, _, err := domain.MapRowsToFeatures(rows, ft, readPostgisGeometry)
	if err != nil {
		return nil, err
	}
	if len(features) != 1 {
		return nil, nil //nolint:nilnil
	}
	return features[0], nil
}

func identityColumn(ft *xsd.FeatureType) string {
	if n := ft.GmlIDNode(); n != nil {
		return n.DataSourcePath
	}
	return "id"
}

func makeFeaturesQuery(table, idColumn string, opt datasources.FeatureOptions) (string, map[string]any, error) {
	args := map[string]any{
		"id":    opt.Cursor.FeatureID,
		"limit": opt.Limit,
	}
	if opt.Cursor.FeatureID == "" {
		args["id"] = ""
	}

	where := fmt.Sprintf("%s >= :id", idColumn)
	if opt.Predicate != nil {
		predSQL, predArgs, err := datasources.RenderPredicate(opt.Predicate, datasources.PostGISDialect)
		if err != nil {
			return "", nil, err
		}
		where = fmt.Sprintf("(%s) and %s", predSQL, where)
		for k, v := range predArgs {
			args[k] = v
		}
	}

	order := idColumn + " asc"
	if len(opt.SortBy) > 0 {
		parts := make([]string, len(opt.SortBy))
		for i, s := range opt.SortBy {
			dir := "asc"
			if !s.Ascending {
				dir = "desc"
			}
			parts[i] = fmt.Sprintf("%s %s", s.DataSourcePath, dir)
		}
		order = strings.Join(parts, ", ")
	}

	query := fmt.Sprintf(`
with
    filtered as (select * from %[1]s f where %[2]s),
    next as (select * from filtered where %[3]s >= :id order by %[4]s limit :limit + 1),
    prev as (select * from filtered where %[3]s < :id order by %[3]s desc limit :limit),
    nextprev as (select * from next union all select * from prev),
    nextprevfeat as (select *, lag(%[3]s, :limit) over (order by %[3]s) as prevfid, lead(%[3]s, :limit) over (order by %[3]s) as nextfid from nextprev)
select * from nextprevfeat where %[3]s >= :id order by %[4]s limit :limit
`, table, where, idColumn, order)

	return query, args, nil
}

func (p *PostGIS) countFeatures(ctx context.Context, table string, opt datasources.FeatureOptions) (int, error) {
	where := "1 = 1"
	args := map[string]any{}
	if opt.Predicate != nil {
		predSQL, predArgs, err := datasources.RenderPredicate(opt.Predicate, datasources.PostGISDialect)
		if err != nil {
			return 0, err
		}
		where = predSQL
		args = predArgs
	}
	query := fmt.Sprintf("select count(*) from %s f where %s", table, where)
	stmt, err := p.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryxContext(ctx, args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// readPostgisGeometry decodes a PostGIS geometry column value that sqlx
// scanned out as WKB bytes (ST_AsBinary / the driver's default wire format),
// the same decoding tegola's postgis provider uses for geometry columns.
func readPostgisGeometry(raw []byte) (geom.Geometry, error) {
	return wkb.DecodeBytes(raw)
}
