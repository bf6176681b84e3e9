package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed assets/index.html assets/openapi.yaml
var assetsFS embed.FS

// loadIndexTemplate は埋め込みのトップページを読み込む
func loadIndexTemplate() (*template.Template, error) {
	tmpl, err := template.ParseFS(assetsFS, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("埋め込みindex.htmlの読み込みに失敗: %w", err)
	}
	return tmpl, nil
}

// loadAPIDocument は埋め込みのOpenAPIドキュメントを検証してJSONにする
func loadAPIDocument(ctx context.Context) ([]byte, error) {
	data, err := assetsFS.ReadFile("assets/openapi.yaml")
	if err != nil {
		return nil, fmt.Errorf("埋め込みopenapi.yamlの読み込みに失敗: %w", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("APIドキュメントの解析に失敗: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("APIドキュメントが不正です: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("APIドキュメントの変換に失敗: %w", err)
	}
	return out, nil
}
