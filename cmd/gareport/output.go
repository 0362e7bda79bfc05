package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/chrisconley/gareport/internal"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatArrow = "arrow"
)

// writeResult renders one result in format. Failed results are written as an
// error line (or document) rather than returned.
func writeResult(w io.Writer, format string, result internal.ReportResult) error {
	data, ok := result.Data()
	if !ok {
		return writeFailure(w, format, result)
	}

	switch strings.ToLower(format) {
	case "", formatTable:
		return writeTable(w, data, result.IsSampled())
	case formatJSON:
		out, err := data.AsJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	case formatYAML:
		return writeYAML(w, data)
	case formatArrow:
		return writeArrow(w, data)
	default:
		return fmt.Errorf("%w: unknown output format %q", internal.ErrInvalidArgument, format)
	}
}

func writeFailure(w io.Writer, format string, result internal.ReportResult) error {
	message := result.Err().Message
	switch strings.ToLower(format) {
	case formatJSON:
		out, err := json.Marshal(map[string]string{"queryId": result.QueryID(), "error": message})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	case formatYAML:
		return yaml.NewEncoder(w).Encode(map[string]string{"queryId": result.QueryID(), "error": message})
	default:
		_, err := fmt.Fprintf(w, "query %s failed: %s\n", result.QueryID(), message)
		return err
	}
}

func writeTable(w io.Writer, data internal.TabularData, sampled bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(data.ColumnNames(), "\t"))
	for _, row := range data.Rows() {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatCell(value)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	summary := fmt.Sprintf("(%d rows)", data.RowCount())
	if sampled {
		summary = fmt.Sprintf("(%d rows, sampled)", data.RowCount())
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

func formatCell(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// writeYAML renders rows as a sequence of mappings keeping column order.
func writeYAML(w io.Writer, data internal.TabularData) error {
	document := &yaml.Node{Kind: yaml.SequenceNode}
	names := data.ColumnNames()
	for _, row := range data.Rows() {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for i, value := range row {
			node, err := yamlNode(value)
			if err != nil {
				return fmt.Errorf("failed to encode column %s: %w", names[i], err)
			}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: names[i]},
				node,
			)
		}
		document.Content = append(document.Content, mapping)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return err
	}
	return encoder.Close()
}

// yamlNode keeps currency values numeric and renders dates as plain scalars.
func yamlNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case internal.Decimal:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v.String()}, nil
	case fmt.Stringer:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()}, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	return node, nil
}

// writeArrow writes the table as an Arrow IPC stream.
func writeArrow(w io.Writer, data internal.TabularData) error {
	record, err := data.AsArrowRecord(memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(record.Schema()))
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write arrow stream: %w", err)
	}
	return writer.Close()
}
