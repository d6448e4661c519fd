package wdqs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wikitools/wikikb/pkg/chunk"
)

// valuesClause renders an entity batch as a VALUES clause body.
func valuesClause(batch []string) string {
	return "wd:" + strings.Join(batch, " wd:")
}

// runTable executes a table-producing worker over a validated entity
// list and unwraps the aggregate.
func (c *Client) runTable(ctx context.Context, worker chunk.Worker, entities []string, size int) (*chunk.Table, error) {
	valid, err := chunk.Entities(entities)
	if err != nil {
		return nil, err
	}

	agg, err := chunk.Run(ctx, worker, valid, c.chunkSize(size))
	if err != nil || agg == nil {
		return nil, err
	}
	return agg.(*chunk.Table), nil
}

// InstanceOf returns the classes each entity is an instance of, one
// row per entity with the classes joined by "|". With a non-empty
// class filter (classes separated by "|"), an extra boolean column
// instanceof_<class> says whether the entity is an instance of any of
// them.
func (c *Client) InstanceOf(ctx context.Context, entities []string, class string, chunkSize int) (*chunk.Table, error) {
	return c.runTable(ctx, func(ctx context.Context, batch []string) (chunk.Partial, error) {
		query := fmt.Sprintf(`SELECT ?entity
(GROUP_CONCAT(DISTINCT ?instanc;separator="|") as ?instanceof)
WHERE {
  OPTIONAL {
    VALUES ?entity { %s }
    OPTIONAL {?entity wdt:P31 ?instanc.}
  }
} GROUP BY ?entity`, valuesClause(batch))

		table, err := c.QueryCSV(ctx, query)
		if err != nil {
			return nil, err
		}

		ei, ii := colIndex(table, "entity"), colIndex(table, "instanceof")
		if ei < 0 || ii < 0 {
			return nil, fmt.Errorf("result misses entity or instanceof column: %v", table.Columns)
		}
		for _, row := range table.Rows {
			row[ei] = stripEntity(row[ei])
			row[ii] = stripEntities(row[ii])
		}

		if class != "" {
			wanted := make(map[string]struct{})
			for _, cl := range strings.Split(class, "|") {
				wanted[cl] = struct{}{}
			}
			table.Columns = append(table.Columns, "instanceof_"+class)
			for i, row := range table.Rows {
				match := "false"
				for _, cl := range strings.Split(row[ii], "|") {
					if _, ok := wanted[cl]; ok {
						match = "true"
						break
					}
				}
				table.Rows[i] = append(row, match)
			}
		}
		return table, nil
	}, entities, chunkSize)
}

// IsValid reports whether each entity has a label or a description.
// Deleted entities come back invalid; entities redirecting to another
// entity carry the target in the redirection column.
func (c *Client) IsValid(ctx context.Context, entities []string, chunkSize int) (*chunk.Table, error) {
	return c.runTable(ctx, func(ctx context.Context, batch []string) (chunk.Partial, error) {
		query := fmt.Sprintf(`SELECT ?entity ?valid
(GROUP_CONCAT(DISTINCT ?instanc; separator='|') as ?instanceof) ?redirection
WHERE {
  OPTIONAL {
    VALUES ?entity { %s }
    BIND(EXISTS{?entity rdfs:label []} || EXISTS{?entity schema:description []} AS ?valid).
    OPTIONAL {?entity wdt:P31 ?instanc.}
    OPTIONAL {?entity owl:sameAs ?redirection}
  }
} GROUP BY ?entity ?valid ?redirection`, valuesClause(batch))

		table, err := c.QueryCSV(ctx, query)
		if err != nil {
			return nil, err
		}

		for _, name := range []string{"entity", "valid", "instanceof", "redirection"} {
			if colIndex(table, name) < 0 {
				return nil, fmt.Errorf("result misses %s column: %v", name, table.Columns)
			}
		}
		ei := colIndex(table, "entity")
		ii := colIndex(table, "instanceof")
		ri := colIndex(table, "redirection")
		for _, row := range table.Rows {
			row[ei] = stripEntity(row[ei])
			row[ii] = stripEntities(row[ii])
			row[ri] = stripEntity(row[ri])
		}
		return table, nil
	}, entities, chunkSize)
}

// Wikipedias returns the wiki page titles and URLs bound to each
// entity. With wikiLangs (languages separated by "|") only those
// languages are returned, reordered to the given language order. With
// a non-empty class, rows whose entity is not an instance of it are
// dropped.
func (c *Client) Wikipedias(ctx context.Context, entities []string, wikiLangs, class string, chunkSize int) (*chunk.Table, error) {
	var langOrder []string
	filter := ""
	if wikiLangs != "" {
		langOrder = strings.Split(wikiLangs, "|")
		filter = "FILTER(?lang IN ('" + strings.Join(langOrder, "', '") + "'))"
	}

	return c.runTable(ctx, func(ctx context.Context, batch []string) (chunk.Partial, error) {
		// The outer OPTIONAL around VALUES avoids service timeouts on
		// large batches.
		query := fmt.Sprintf(`SELECT DISTINCT ?entity
(GROUP_CONCAT(DISTINCT ?instanc;separator="|") as ?instanceof)
(COUNT(DISTINCT ?page) as ?npages)
(GROUP_CONCAT(DISTINCT ?lang;separator="|") as ?langs)
(GROUP_CONCAT(DISTINCT ?name;separator="|") as ?names)
(GROUP_CONCAT(DISTINCT ?page;separator="|") as ?pages)
WHERE {
  OPTIONAL {
    VALUES ?entity { %s }
    OPTIONAL {?entity wdt:P31 ?instanc.}
    OPTIONAL {
    ?page schema:about ?entity;
          schema:inLanguage ?lang;
          schema:name ?name;
          schema:isPartOf [wikibase:wikiGroup "wikipedia"].
          %s
    }
  }
} GROUP BY ?entity`, valuesClause(batch), filter)

		table, err := c.QueryCSV(ctx, query)
		if err != nil {
			return nil, err
		}

		for _, name := range []string{"entity", "instanceof", "npages", "langs", "names", "pages"} {
			if colIndex(table, name) < 0 {
				return nil, fmt.Errorf("result misses %s column: %v", name, table.Columns)
			}
		}
		ei := colIndex(table, "entity")
		ii := colIndex(table, "instanceof")
		ni := colIndex(table, "npages")

		kept := table.Rows[:0]
		for _, row := range table.Rows {
			row[ei] = stripEntity(row[ei])
			row[ii] = stripEntities(row[ii])
			if class != "" && !containsClass(row[ii], class) {
				continue
			}
			kept = append(kept, row)
		}
		table.Rows = kept

		if len(langOrder) > 0 {
			for _, row := range table.Rows {
				if npages, _ := strconv.Atoi(row[ni]); npages > 1 {
					reorderLangs(table, row, langOrder)
				}
			}
		}
		return table, nil
	}, entities, chunkSize)
}

// containsClass reports whether a "|"-joined class list contains class.
func containsClass(list, class string) bool {
	for _, cl := range strings.Split(list, "|") {
		if cl == class {
			return true
		}
	}
	return false
}

// reorderLangs rewrites the langs, names and pages cells of one row so
// their "|"-joined elements follow the caller's language order.
func reorderLangs(table *chunk.Table, row []string, langOrder []string) {
	li := colIndex(table, "langs")
	langs := strings.Split(row[li], "|")

	var order []int
	for _, lang := range langOrder {
		for i, have := range langs {
			if have == lang {
				order = append(order, i)
				break
			}
		}
	}

	for _, name := range []string{"langs", "names", "pages"} {
		col := colIndex(table, name)
		parts := strings.Split(row[col], "|")
		sorted := make([]string, 0, len(order))
		for _, i := range order {
			if i < len(parts) {
				sorted = append(sorted, parts[i])
			}
		}
		row[col] = strings.Join(sorted, "|")
	}
}

// LabelDesc returns the label (L), description (D) or both (LD) of
// each entity, using the language fallback order in langsOrder
// (languages separated by "|", at least one required).
func (c *Client) LabelDesc(ctx context.Context, entities []string, what, langsOrder string, chunkSize int) (*chunk.Table, error) {
	langsOrder = strings.TrimSpace(langsOrder)
	if langsOrder == "" {
		return nil, &chunk.ConfigError{Reason: "language order is required"}
	}
	if !strings.Contains(what, "L") && !strings.Contains(what, "D") {
		return nil, &chunk.ConfigError{Reason: fmt.Sprintf("selector %q must contain L or D", what)}
	}
	languages := strings.ReplaceAll(langsOrder, "|", ",")

	var vars, patterns string
	if strings.Contains(what, "L") {
		vars += " (LANG(?label) as ?labellang) ?label"
		patterns += " ?entity rdfs:label ?label.\n"
	}
	if strings.Contains(what, "D") {
		vars += " (LANG(?description) as ?descriptionlang) ?description"
		patterns += " ?entity schema:description ?description.\n"
	}

	return c.runTable(ctx, func(ctx context.Context, batch []string) (chunk.Partial, error) {
		query := fmt.Sprintf(`SELECT ?entity %s
WHERE {
  VALUES ?entity {%s}
  SERVICE wikibase:label {
    bd:serviceParam wikibase:language "%s".
    %s
  }
}`, vars, valuesClause(batch), languages, patterns)

		table, err := c.QueryCSV(ctx, query)
		if err != nil {
			return nil, err
		}

		ei := colIndex(table, "entity")
		if ei < 0 {
			return nil, fmt.Errorf("result misses entity column: %v", table.Columns)
		}
		for _, row := range table.Rows {
			row[ei] = stripEntity(row[ei])
		}
		return table, nil
	}, entities, chunkSize)
}
