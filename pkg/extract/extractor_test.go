package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/roles"
)

const phpController = `<?php

namespace App\Controller;

use App\Service\UserService;
use Symfony\Bundle\FrameworkBundle\Controller\AbstractController;
use Symfony\Component\HttpFoundation\Response;

final class UserController extends AbstractController
{
    public function __construct(private UserService $users, private LoggerInterface $logger)
    {
    }

    public function show(int $userId): Response
    {
        $user = $this->users->find($userId);
        if (!$user) {
            throw new NotFoundHttpException('missing');
        }
        return $this->render('user/show.html.twig', ['user' => $user]);
    }

    private function helper($x)
    {
    }
}
`

const goService = `package service

import (
	"context"
	"fmt"

	"github.com/acme/shop/internal/store"
)

// UserService does things
type UserService struct {
	store *store.Store
}

func NewUserService(st *store.Store, log Logger) *UserService {
	return &UserService{store: st}
}

func (s *UserService) Find(ctx context.Context, userID string) (*User, error) {
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", userID, err)
	}
	return u, nil
}

func (s *UserService) helper() {}
`

const pythonModel = `from django.db import models
import os

from .utils import slugify


class Article(models.Model):
    title = models.CharField(max_length=200)

    def __init__(self, author, *args, **kwargs):
        super().__init__(*args, **kwargs)

    def publish(self, when_ready: bool) -> None:
        if not self.title:
            raise ValueError("title required")
        try:
            self.save()
        except (IntegrityError, DatabaseError) as exc:
            raise PublishError from exc


def make_slug(value):
    return slugify(value)
`

const tsService = `import * as path from 'path';
import { Injectable } from '@nestjs/common';
import { UserRepository } from './user.repository';

@Injectable()
export class UserService {
  constructor(private readonly repo: UserRepository) {}

  async findOne(userId: string): Promise<User> {
    const user = await this.repo.findOne(userId);
    if (!user) {
      throw new NotFoundException('user');
    }
    return user;
  }
}
`

func extractFixture(t *testing.T, path, src, lang string, opts Options) pattern.Record {
	t.Helper()
	rec, err := New(opts).Extract(context.Background(), path, []byte(src), roles.Key{Role: roles.Service}, lang)
	require.NoError(t, err)
	return rec
}

func TestExtract_PHP(t *testing.T) {
	rec := extractFixture(t, "src/Controller/UserController.php", phpController, project.PHP,
		Options{InternalPrefixes: []string{`App\`}})

	assert.Equal(t, "src/Controller/UserController.php", rec.Path)
	assert.Equal(t, project.PHP, rec.Language)
	assert.Equal(t, &pattern.Naming{Style: pattern.PascalCase, Fraction: 1, Sampled: 1, Line: 9}, rec.Naming)
	assert.Equal(t, &pattern.ImportStyle{Sorted: true, Grouped: true, Blocks: 1, Count: 3, Line: 5}, rec.Imports)
	assert.Equal(t, &pattern.Dependency{Pattern: pattern.ConstructorInjection, Occurrences: 2, Line: 11}, rec.Dependency)
	assert.Equal(t, &pattern.ErrorHandling{Idiom: pattern.ThrowBased, Types: []string{"NotFoundHttpException"}, Line: 19}, rec.Errors)
	assert.Equal(t, []pattern.Signature{
		{Name: "__construct", Line: 11, Arity: 2},
		{Name: "show", Line: 15, Arity: 1, ParamCasing: pattern.CamelCase, HasReturnType: true},
	}, rec.Signatures)
}

func TestExtract_Go(t *testing.T) {
	rec := extractFixture(t, "internal/service/user.go", goService, project.Go,
		Options{InternalPrefixes: []string{"github.com/acme/shop"}})

	assert.Equal(t, &pattern.Naming{Style: pattern.CamelCase, Fraction: 1, Sampled: 2, Line: 11}, rec.Naming)
	assert.Equal(t, &pattern.ImportStyle{Sorted: true, Grouped: true, Blocks: 2, Count: 3, Line: 4}, rec.Imports)
	assert.Equal(t, &pattern.Dependency{Pattern: pattern.ConstructorInjection, Occurrences: 2, Line: 15}, rec.Dependency)
	assert.Equal(t, &pattern.ErrorHandling{Idiom: pattern.ResultBased, Line: 21}, rec.Errors)
	assert.Equal(t, []pattern.Signature{
		{Name: "NewUserService", Line: 15, Arity: 2, HasReturnType: true},
		{Name: "Find", Line: 19, Arity: 2, ParamCasing: pattern.CamelCase, HasReturnType: true},
	}, rec.Signatures)
}

func TestExtract_Python(t *testing.T) {
	rec := extractFixture(t, "blog/models.py", pythonModel, project.Python, Options{})

	require.NotNil(t, rec.Naming)
	assert.Equal(t, 2, rec.Naming.Sampled)
	assert.Equal(t, &pattern.ImportStyle{Sorted: true, Grouped: true, Blocks: 2, Count: 3, Line: 1}, rec.Imports)
	assert.Equal(t, &pattern.Dependency{Pattern: pattern.ConstructorInjection, Occurrences: 3, Line: 10}, rec.Dependency)
	assert.Equal(t, &pattern.ErrorHandling{
		Idiom: pattern.ThrowBased,
		Types: []string{"DatabaseError", "IntegrityError", "PublishError", "ValueError"},
		Line:  15,
	}, rec.Errors)
	assert.Equal(t, []pattern.Signature{
		{Name: "publish", Line: 13, Arity: 1, ParamCasing: pattern.SnakeCase, HasReturnType: true},
		{Name: "make_slug", Line: 22, Arity: 1},
	}, rec.Signatures)
}

func TestExtract_TypeScript(t *testing.T) {
	rec := extractFixture(t, "src/users/user.service.ts", tsService, project.TypeScript, Options{})

	assert.Equal(t, &pattern.Naming{Style: pattern.PascalCase, Fraction: 1, Sampled: 1, Line: 6}, rec.Naming)
	assert.Equal(t, &pattern.ImportStyle{Sorted: false, Grouped: true, Wildcard: true, Blocks: 1, Count: 3, Line: 1}, rec.Imports)
	assert.Equal(t, "unsorted, grouped, wildcard", rec.Value(pattern.FieldImports))
	assert.Equal(t, &pattern.Dependency{Pattern: pattern.ConstructorInjection, Occurrences: 1, Line: 7}, rec.Dependency)
	assert.Equal(t, &pattern.ErrorHandling{Idiom: pattern.ThrowBased, Types: []string{"NotFoundException"}, Line: 12}, rec.Errors)
	assert.Equal(t, []pattern.Signature{
		{Name: "constructor", Line: 7, Arity: 1},
		{Name: "findOne", Line: 9, Arity: 1, ParamCasing: pattern.CamelCase, HasReturnType: true},
	}, rec.Signatures)
}

func TestExtract_NoEvidenceLeavesFieldsNil(t *testing.T) {
	rec := extractFixture(t, "src/empty.php", "<?php\n", project.PHP, Options{})

	assert.Nil(t, rec.Naming)
	assert.Nil(t, rec.Imports)
	assert.Nil(t, rec.Dependency)
	assert.Nil(t, rec.Errors)
	assert.Empty(t, rec.Signatures)
}

func TestExtract_Unparsable(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"nul byte", []byte("GIF89a\x00\x01\x02")},
		{"invalid utf-8", []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Extract(context.Background(), "img/logo.php", tt.content, roles.Key{Role: roles.Other}, project.PHP)
			require.Error(t, err)
			assert.True(t, IsUnparsable(err))

			var upe *UnparsablePatternError
			require.ErrorAs(t, err, &upe)
			assert.Equal(t, "img/logo.php", upe.Path)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Extract(ctx, "a.go", []byte("package a\n"), roles.Key{Role: roles.Other}, project.Go)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_UnknownLanguageUsesGenericProfile(t *testing.T) {
	src := "defmodule Shop do\n  def total_price(items) do\n  end\nend\n\nfunction load_items() {}\nclass CartItem {}\n"

	rec := extractFixture(t, "lib/shop.ex", src, "elixir", Options{})
	require.NotNil(t, rec.Naming)
	assert.Equal(t, pattern.SnakeCase, rec.Naming.Style)
	assert.Equal(t, 3, rec.Naming.Sampled)
	assert.Equal(t, 2, rec.Naming.Line)
}

func TestExtract_SyntaxTreesMatchLexicalForGo(t *testing.T) {
	lexical := extractFixture(t, "internal/service/user.go", goService, project.Go, Options{})
	parsed := extractFixture(t, "internal/service/user.go", goService, project.Go, Options{SyntaxTrees: true})

	assert.Equal(t, lexical.Signatures, parsed.Signatures)
	assert.Equal(t, lexical.Naming, parsed.Naming)
}

func TestExtract_SyntaxTreesPython(t *testing.T) {
	rec := extractFixture(t, "blog/models.py", pythonModel, project.Python, Options{SyntaxTrees: true})

	assert.Equal(t, []pattern.Signature{
		{Name: "publish", Line: 13, Arity: 1, ParamCasing: pattern.SnakeCase, HasReturnType: true},
		{Name: "make_slug", Line: 22, Arity: 1},
	}, rec.Signatures)
}

func TestTreeSignatures(t *testing.T) {
	tests := []struct {
		name string
		path string
		lang string
		src  string
		want []pattern.Signature
	}{
		{
			name: "javascript",
			path: "src/stores/userStore.js",
			lang: project.JavaScript,
			src: `export function loadUser(userId, options) {
  return null;
}

function _internal() {}

class UserStore {
  constructor(db) {}
  findById(id) {}
  #secret() {}
}
`,
			want: []pattern.Signature{
				{Name: "loadUser", Line: 1, Arity: 2, ParamCasing: pattern.CamelCase},
				{Name: "constructor", Line: 8, Arity: 1},
				{Name: "findById", Line: 9, Arity: 1},
			},
		},
		{
			name: "typescript",
			path: "src/services/price.service.ts",
			lang: project.TypeScript,
			src: `export function formatPrice(amountCents: number): string {
  return "";
}

export class PriceService {
  private cache = new Map<string, number>();
  constructor(private repo: PriceRepo) {}
  public quote(productId: string, qty: number): number {
    return 0;
  }
  protected reset(): void {}
}
`,
			want: []pattern.Signature{
				{Name: "formatPrice", Line: 1, Arity: 1, ParamCasing: pattern.CamelCase, HasReturnType: true},
				{Name: "constructor", Line: 7, Arity: 1},
				{Name: "quote", Line: 8, Arity: 2, ParamCasing: pattern.CamelCase, HasReturnType: true},
			},
		},
		{
			name: "tsx",
			path: "src/components/Button.tsx",
			lang: project.TypeScript,
			src: `export function Button(props: ButtonProps) {
  return <button>{props.label}</button>;
}
`,
			want: []pattern.Signature{
				{Name: "Button", Line: 1, Arity: 1},
			},
		},
		{
			name: "rust",
			path: "src/cart.rs",
			lang: project.Rust,
			src: `pub struct Cart;

impl Cart {
    pub fn new() -> Self {
        Cart
    }

    pub fn add_item(&mut self, item_id: u64, qty: u32) {}

    fn recalc(&self) {}
}

pub fn total_price(cart: &Cart) -> u64 {
    0
}
`,
			want: []pattern.Signature{
				{Name: "new", Line: 4, HasReturnType: true},
				{Name: "add_item", Line: 8, Arity: 2, ParamCasing: pattern.SnakeCase},
				{Name: "total_price", Line: 13, Arity: 1, HasReturnType: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigs, err := treeSignatures(context.Background(), tt.path, []byte(tt.src), tt.lang)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sigs)
		})
	}
}

func TestTreeSignatures_NoGrammar(t *testing.T) {
	_, err := treeSignatures(context.Background(), "src/a.php", []byte("<?php\n"), project.PHP)
	assert.ErrorContains(t, err, "no grammar for php")
}

func TestHasGrammar(t *testing.T) {
	assert.True(t, HasGrammar(project.Go))
	assert.True(t, HasGrammar(project.TypeScript))
	assert.False(t, HasGrammar(project.PHP))
}
