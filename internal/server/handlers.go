package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Skufu/SymptomDx/internal/auth"
	"github.com/Skufu/SymptomDx/internal/clinical"
	"github.com/Skufu/SymptomDx/internal/diagnosis"
)

func (h *handlers) symptoms(c *gin.Context) {
	keys := h.svc.Engine().Symptoms()
	c.JSON(http.StatusOK, gin.H{"symptoms": keys, "count": len(keys)})
}

type fieldInfo struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	Default  string   `json:"default,omitempty"`
}

type testInfo struct {
	Kind      clinical.Kind `json:"kind"`
	Title     string        `json:"title"`
	Available bool          `json:"available"`
	Fields    []fieldInfo   `json:"fields"`
}

func (h *handlers) tests(c *gin.Context) {
	out := make([]testInfo, 0, len(clinical.Kinds()))
	for _, kind := range clinical.Kinds() {
		p, _ := clinical.Lookup(string(kind))
		info := testInfo{Kind: kind, Title: p.Title, Available: h.svc.Engine().Available(kind)}
		for _, f := range p.Fields {
			fi := fieldInfo{Name: f.Name, Aliases: f.Aliases, Required: f.Default == "", Default: f.Default, Kind: "number"}
			switch f.Encoding {
			case clinical.Sex:
				fi.Kind = "sex"
			case clinical.YesNo:
				fi.Kind = "yes_no"
			}
			info.Fields = append(info.Fields, fi)
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"tests": out})
}

func (h *handlers) predict(c *gin.Context) {
	var req diagnosis.PredictRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.Predict(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) mine(c *gin.Context) {
	id, _ := auth.FromContext(c)
	records, err := h.svc.History(c.Request.Context(), id.Email, id.Name, queryLimit(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *handlers) records(c *gin.Context) {
	records, err := h.svc.Records(c.Request.Context(), queryLimit(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type testPayload struct {
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

func (h *handlers) runTest(c *gin.Context) {
	req := diagnosis.TestRequest{Kind: c.Param("kind")}
	if id, ok := auth.FromContext(c); ok {
		req.Doctor = id.Name
	}

	if c.ContentType() == binding.MIMEJSON {
		var payload testPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			bindError(c, err)
			return
		}
		req.Name = payload.Name
		req.Values = make(map[string]string, len(payload.Fields))
		for k, v := range payload.Fields {
			req.Values[k] = formatValue(v)
		}
	} else {
		if err := c.Request.ParseMultipartForm(32 << 10); err != nil && err != http.ErrNotMultipart {
			bindError(c, err)
			return
		}
		req.Values = make(map[string]string, len(c.Request.PostForm))
		for k, vs := range c.Request.PostForm {
			if len(vs) == 0 {
				continue
			}
			if strings.EqualFold(k, "name") {
				req.Name = vs[0]
				continue
			}
			req.Values[k] = vs[0]
		}
	}

	res, err := h.svc.RunTest(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(x)
	}
}

func (h *handlers) testResults(c *gin.Context) {
	results, err := h.svc.TestResults(c.Request.Context(), c.Param("kind"), queryLimit(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *handlers) ask(c *gin.Context) {
	var req diagnosis.QuestionRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.svc.Ask(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) questions(c *gin.Context) {
	qs, err := h.svc.Questions(c.Request.Context(), queryLimit(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": qs})
}

type respondPayload struct {
	Response string `json:"response" form:"response"`
}

func (h *handlers) respond(c *gin.Context) {
	var req respondPayload
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.svc.Respond(c.Request.Context(), c.Param("id"), req.Response)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) responses(c *gin.Context) {
	rs, err := h.svc.Responses(c.Request.Context(), queryLimit(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": rs})
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
