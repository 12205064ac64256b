package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "verify",
			Action:       "run",
			Method:       "POST",
			PathTemplate: "/api/v1/studies/:id/verify",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Aliases: []string{"study_id"}, Prompt: "study_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "verify",
			Action:       "status",
			Method:       "GET",
			PathTemplate: "/api/v1/studies/:id/verification",
			RequiresAuth: false,
			Fields: []Field{
				{Name: "id", Aliases: []string{"study_id"}, Prompt: "study_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "verify",
			Action:       "inline",
			Method:       "POST",
			PathTemplate: "/api/v1/verify",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "source_code", Prompt: "source_code", Type: FieldString, Required: true},
				{Name: "dataset_content", Prompt: "dataset_content", Type: FieldString, Required: true},
				{Name: "expected_output", Prompt: "expected_output", Type: FieldString, Required: true},
				{Name: "source_file", Prompt: "source_file", Type: FieldFile, Required: false},
				{Name: "dataset_file", Prompt: "dataset_file", Type: FieldFile, Required: false},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		key := fmt.Sprintf("%s %s", cmd.Service, cmd.Action)
		result[key] = cmd
	}
	return result
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	placeholder := ":id"
	if strings.Contains(path, placeholder) {
		value := params.Get("id")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: id")
		}
		if _, err := ParseInt64(value); err != nil {
			return "", fmt.Errorf("invalid study id: %w", err)
		}
		path = strings.ReplaceAll(path, placeholder, strings.TrimSpace(value))
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	if cmd.Service != "verify" {
		return nil, nil
	}
	switch cmd.Action {
	case "inline":
		source, err := valueOrFile(params, "source_code", "source_file")
		if err != nil {
			return nil, err
		}
		dataset, err := valueOrFile(params, "dataset_content", "dataset_file")
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"source_code":     source,
			"dataset_content": dataset,
			"expected_output": params.Get("expected_output"),
		}, nil
	default:
		return nil, nil
	}
}

func valueOrFile(params Params, key, fileKey string) (string, error) {
	value := params.Get(key)
	if (value == "" || value == "_file_") && params.Get(fileKey) != "" {
		data, err := ReadFile(params.Get(fileKey))
		if err != nil {
			return "", err
		}
		value = data
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}
