package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"

	"github.com/sarchlab/bfasm/compiler"
	"github.com/sarchlab/bfasm/store"
)

var _ = DescribeTable("ClassifyUserAgent",
	func(ua string, want UserAgent) {
		Expect(ClassifyUserAgent(ua)).To(Equal(want))
	},
	Entry("firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", Browser),
	Entry("chrome", "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0", Browser),
	Entry("curl", "curl/8.5.0", Terminal),
	Entry("wget", "Wget/1.21", Terminal),
	Entry("go client", "Go-http-client/1.1", Terminal),
	Entry("empty", "", Terminal),
)

var _ = Describe("Server", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockRecorder
		logger   *slog.Logger
		srv      *Server
		recorded []store.Record
	)

	post := func(body, contentType string, header ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for i := 0; i+1 < len(header); i += 2 {
			req.Header.Set(header[i], header[i+1])
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockRecorder(mockCtrl)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		recorded = nil

		recorder.EXPECT().Record(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r store.Record) error {
				recorded = append(recorded, r)
				return nil
			}).AnyTimes()

		srv = Builder{}.
			WithCompiler(CompilerFunc(compiler.Compile)).
			WithRecorder(recorder).
			WithLogger(logger).
			WithMaxBody(64).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should compile a program to a plain text attachment", func() {
		rec := post("+[-]", MediaBrainfuck)

		want, err := compiler.CompileBytes([]byte("+[-]"))
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Bytes()).To(Equal(want))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("program.asm"))

		_, err = xid.FromString(rec.Header().Get(RequestIDHeader))
		Expect(err).NotTo(HaveOccurred())

		Expect(recorded).To(HaveLen(1))
		Expect(recorded[0].OK).To(BeTrue())
		Expect(recorded[0].Loops).To(Equal(1))
		Expect(recorded[0].SourceBytes).To(Equal(4))
	})

	It("should accept text/plain with parameters", func() {
		rec := post(".", "text/plain; charset=utf-8")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should answer browsers with a page", func() {
		rec := post("+", MediaPlain, "Accept", "text/html,application/xhtml+xml;q=0.9")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/html"))
		Expect(rec.Body.String()).To(ContainSubstring("<pre>lbu $s0, 0($sp)\n"))
	})

	It("should answer browser user agents with a page", func() {
		rec := post("+", MediaPlain,
			"Accept", "*/*",
			"User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/html"))
	})

	It("should answer terminals with the listing", func() {
		rec := post("+", MediaPlain, "Accept", "*/*", "User-Agent", "curl/8.5.0")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
	})

	It("should let Accept override the user agent", func() {
		rec := post("+", MediaPlain, "Accept", "text/plain", "User-Agent", "Mozilla/5.0")

		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
	})

	It("should reject other content types", func() {
		rec := post("+", "application/json")

		Expect(rec.Code).To(Equal(http.StatusUnsupportedMediaType))
		Expect(recorded).To(BeEmpty())
	})

	It("should reject a missing content type", func() {
		rec := post("+", "")

		Expect(rec.Code).To(Equal(http.StatusUnsupportedMediaType))
	})

	It("should report malformed programs", func() {
		rec := post("+[", MediaBrainfuck)

		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(rec.Body.String()).To(ContainSubstring("unclosed '['"))
		Expect(recorded).To(HaveLen(1))
		Expect(recorded[0].OK).To(BeFalse())
		Expect(recorded[0].Error).To(ContainSubstring("malformed program"))
	})

	It("should reject programs over the body limit", func() {
		rec := post(strings.Repeat("+", 65), MediaBrainfuck)

		Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(recorded).To(BeEmpty())
	})

	It("should hide internal compiler failures", func() {
		failing := NewMockCompiler(mockCtrl)
		failing.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
		srv = Builder{}.
			WithCompiler(failing).
			WithRecorder(recorder).
			WithLogger(logger).
			Build()

		rec := post("+", MediaBrainfuck)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})

	It("should not route other methods", func() {
		rec := get("/compile")

		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should report status", func() {
		post("+", MediaBrainfuck)
		post("]", MediaBrainfuck)

		rec := get("/status")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var st Status
		Expect(json.Unmarshal(rec.Body.Bytes(), &st)).To(Succeed())
		Expect(st.Compiles).To(Equal(uint64(2)))
		Expect(st.UptimeSeconds).To(BeNumerically(">=", 0))
	})

	It("should list history", func() {
		id := xid.New()
		recorder.EXPECT().Recent(gomock.Any(), 5).Return([]store.Record{{
			ID:          id,
			CreatedAt:   id.Time(),
			SourceBytes: 7,
			Loops:       2,
			OK:          true,
		}}, nil)

		rec := get("/history?limit=5")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var entries []HistoryEntry
		Expect(json.Unmarshal(rec.Body.Bytes(), &entries)).To(Succeed())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ID).To(Equal(id.String()))
		Expect(entries[0].Loops).To(Equal(2))
	})

	It("should use the default history limit", func() {
		recorder.EXPECT().Recent(gomock.Any(), defaultHistoryLimit).Return(nil, nil)

		rec := get("/history")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.TrimSpace(rec.Body.String())).To(Equal("[]"))
	})

	It("should reject bad history limits", func() {
		for _, q := range []string{"0", "-1", "x", "1001"} {
			rec := get("/history?limit=" + q)
			Expect(rec.Code).To(Equal(http.StatusBadRequest), q)
		}
	})

	It("should report history failures", func() {
		recorder.EXPECT().Recent(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

		rec := get("/history")

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
	})

	It("should shut down when the context is cancelled", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Serve(ctx, ln, time.Second)
		}()

		resp, err := http.Post("http://"+ln.Addr().String()+"/compile", MediaBrainfuck, strings.NewReader("."))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
