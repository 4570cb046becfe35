package command

import (
	"encoding/json"
	"fmt"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service: "judge",
			Action:  "health",
			Method:  "GET",
			Path:    "/",
			Target:  TargetGateway,
		},
		{
			Service: "judge",
			Action:  "execute",
			Method:  "POST",
			Path:    "/execute",
			Target:  TargetGateway,
			Fields: []Field{
				{Name: "processor", Prompt: "processor (c++17|c11|python3)", Required: true},
				{Name: "code", Prompt: "code", Required: false},
				{Name: "source_file", Prompt: "source_file", Required: false},
				{Name: "input", Prompt: "stdin input", Required: false},
			},
		},
		{
			Service: "judge",
			Action:  "evaluate",
			Method:  "POST",
			Path:    "/evaluate",
			Target:  TargetGateway,
			Fields: []Field{
				{Name: "processor", Prompt: "processor (c++17|c11|python3)", Required: true},
				{Name: "code", Prompt: "code", Required: false},
				{Name: "source_file", Prompt: "source_file", Required: false},
				{Name: "contest_id", Prompt: "contest_id", Required: true},
				{Name: "problem_id", Prompt: "problem_id", Required: true},
				{Name: "user_id", Prompt: "user_id (internal callers only)", Required: false},
			},
		},
		{
			Service: "check",
			Action:  "health",
			Method:  "GET",
			Path:    "/",
			Target:  TargetCheck,
		},
		{
			Service: "check",
			Action:  "semantic",
			Method:  "POST",
			Path:    "/semantic-code",
			Target:  TargetCheck,
			Fields: []Field{
				{Name: "batch_file", Prompt: "batch_file (JSON array of user data)", Required: true},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[fmt.Sprintf("%s %s", cmd.Service, cmd.Action)] = cmd
	}
	return result
}

// BuildRequest creates an HTTP request spec from a command and its params.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	var body []byte
	if cmd.Method != "GET" {
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
		Method: cmd.Method,
		Path:   cmd.Path,
		Target: cmd.Target,
		Body:   body,
	}, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch {
	case cmd.Service == "judge" && cmd.Action == "execute":
		code, err := resolveCode(params)
		if err != nil {
			return nil, err
		}
		payload := map[string]interface{}{
			"processor": params.Get("processor"),
			"code":      code,
		}
		if params.Get("input") != "" {
			payload["input_data"] = params.Get("input")
		}
		return payload, nil

	case cmd.Service == "judge" && cmd.Action == "evaluate":
		code, err := resolveCode(params)
		if err != nil {
			return nil, err
		}
		payload := map[string]interface{}{
			"processor":  params.Get("processor"),
			"code":       code,
			"contest_id": params.Get("contest_id"),
			"problem_id": params.Get("problem_id"),
		}
		if params.Get("user_id") != "" {
			payload["user_id"] = params.Get("user_id")
		}
		return payload, nil

	case cmd.Service == "check" && cmd.Action == "semantic":
		raw, err := ReadFile(params.Get("batch_file"))
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("batch_file is not valid json")
		}
		return json.RawMessage(raw), nil
	}
	return nil, nil
}

func resolveCode(params Params) (string, error) {
	code := params.Get("code")
	if code == "" && params.Get("source_file") != "" {
		var err error
		code, err = ReadFile(params.Get("source_file"))
		if err != nil {
			return "", err
		}
	}
	if code == "" {
		return "", fmt.Errorf("code or source_file is required")
	}
	return code, nil
}
